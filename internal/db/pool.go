package db

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSubmit/oxidb"
)

const (
	dialTimeout       = 5 * time.Second
	keepaliveInterval = 10 * time.Second
)

// Pool hands out OxiDB connections round-robin and replaces any that stop
// answering the periodic ping.
type Pool struct {
	host   string
	port   int
	logger *zap.Logger

	mu      sync.RWMutex
	clients []*oxidb.Client
	closed  bool
	idx     uint64

	stop      chan struct{}
	closeOnce sync.Once
}

// NewPool creates a pool of size OxiDB connections.
func NewPool(host string, port, size int, logger *zap.Logger) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool: size must be positive, got %d", size)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		host:    host,
		port:    port,
		logger:  logger.Named("oxidb-pool"),
		clients: make([]*oxidb.Client, size),
		stop:    make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		c, err := oxidb.Connect(host, port, dialTimeout)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	// keepalive pings stop the server from dropping idle connections
	go p.keepalive()
	return p, nil
}

// Get returns the next client in round-robin order. A client broken by a
// failed round trip is replaced before it is handed out; if the redial
// fails the broken client is returned and its calls fail with
// oxidb.ErrBroken.
func (p *Pool) Get() *oxidb.Client {
	i := int(atomic.AddUint64(&p.idx, 1) % uint64(len(p.clients)))
	c := p.client(i)
	if c.Broken() {
		p.reconnect(i, c)
		c = p.client(i)
	}
	return c
}

func (p *Pool) client(i int) *oxidb.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clients[i]
}

// Size is the number of pooled connections.
func (p *Pool) Size() int {
	return len(p.clients)
}

// Ping checks one pooled connection.
func (p *Pool) Ping(ctx context.Context) error {
	_, err := p.Get().Ping(ctx)
	return err
}

// reconnect replaces old at index i. It is a no-op when another goroutine
// already replaced old, and never installs a client once the pool is closed.
func (p *Pool) reconnect(i int, old *oxidb.Client) {
	c, err := oxidb.Connect(p.host, p.port, dialTimeout)
	if err != nil {
		p.logger.Warn("reconnect failed", zap.Int("client", i), zap.Error(err))
		return
	}

	p.mu.Lock()
	if p.closed || p.clients[i] != old {
		p.mu.Unlock()
		_ = c.Close()
		return
	}
	p.clients[i] = c
	p.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	p.logger.Info("client reconnected", zap.Int("client", i))
}

func (p *Pool) keepalive() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.pingAll()
		}
	}
}

func (p *Pool) pingAll() {
	for i := range p.clients {
		c := p.client(i)
		if c.Broken() {
			p.logger.Warn("client broken, reconnecting", zap.Int("client", i))
			p.reconnect(i, c)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		_, err := c.Ping(ctx)
		cancel()
		if err != nil {
			p.logger.Warn("ping failed, reconnecting", zap.Int("client", i), zap.Error(err))
			p.reconnect(i, c)
		}
	}
}

// Close stops the keepalive loop and closes all connections. It is safe to
// call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.stop)
		p.mu.Lock()
		defer p.mu.Unlock()
		p.closed = true
		for _, c := range p.clients {
			if c != nil {
				_ = c.Close()
			}
		}
	})
}
