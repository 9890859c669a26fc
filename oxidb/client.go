// Package oxidb talks to an OxiDB server over its TCP protocol.
//
// Every frame is a little-endian uint32 byte count followed by a JSON body.
// Replies carry "ok" plus either "data" or "error".
//
// Only the commands the submission server needs are exposed: documents,
// indexes and blob buckets. A call's context deadline is applied to the
// connection for the length of the round trip.
package oxidb

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

const (
	headerSize = 4
	maxFrame   = 64 << 20
)

// ErrBroken is returned by every call on a client whose connection failed
// mid round trip. Such a client must be replaced.
var ErrBroken = errors.New("oxidb: connection broken")

// Client owns one connection. Calls are serialized, so a Client may be
// shared between goroutines.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	broken bool
}

func Connect(host string, port int, timeout time.Duration) (*Client, error) {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("oxidb: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Broken reports whether a failed round trip left the connection unusable.
func (c *Client) Broken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broken
}

// fail closes the connection so a late reply can never be read as the
// answer to a later command. Must be called with mu held.
func (c *Client) fail() {
	c.broken = true
	_ = c.conn.Close()
}

func writeFrame(w io.Writer, body []byte) error {
	buf := make([]byte, headerSize+len(body))
	binary.LittleEndian.PutUint32(buf[:headerSize], uint32(len(body)))
	copy(buf[headerSize:], body)
	_, err := w.Write(buf)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("oxidb: read frame header: %w", err)
	}
	n := binary.LittleEndian.Uint32(header[:])
	if n > maxFrame {
		return nil, fmt.Errorf("oxidb: frame of %d bytes exceeds limit", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("oxidb: read frame body: %w", err)
	}
	return body, nil
}

type reply struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data"`
	Error string `json:"error"`
}

func (c *Client) roundTrip(ctx context.Context, cmd map[string]any) (*reply, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("oxidb: encode %v: %w", cmd["cmd"], err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken {
		return nil, ErrBroken
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer func() { _ = c.conn.SetDeadline(time.Time{}) }()
	}

	if err := writeFrame(c.conn, body); err != nil {
		c.fail()
		return nil, fmt.Errorf("oxidb: write %v: %w", cmd["cmd"], err)
	}
	raw, err := readFrame(c.conn)
	if err != nil {
		c.fail()
		return nil, err
	}
	var rep reply
	if err := json.Unmarshal(raw, &rep); err != nil {
		c.fail()
		return nil, fmt.Errorf("oxidb: decode reply: %w", err)
	}
	return &rep, nil
}

// call runs cmd and returns the reply data, turning a refusal into *Error.
func (c *Client) call(ctx context.Context, cmd map[string]any) (any, error) {
	rep, err := c.roundTrip(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if !rep.OK {
		msg := rep.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &Error{Msg: msg}
	}
	return rep.Data, nil
}

// Ping returns the server's "pong".
func (c *Client) Ping(ctx context.Context) (string, error) {
	data, err := c.call(ctx, map[string]any{"cmd": "ping"})
	if err != nil {
		return "", err
	}
	pong, _ := data.(string)
	return pong, nil
}

func (c *Client) CreateCollection(ctx context.Context, name string) error {
	_, err := c.call(ctx, map[string]any{"cmd": "create_collection", "collection": name})
	return err
}

// Insert stores doc and returns the reply object, whose "id" is the
// assigned identifier.
func (c *Client) Insert(ctx context.Context, collection string, doc map[string]any) (map[string]any, error) {
	data, err := c.call(ctx, map[string]any{"cmd": "insert", "collection": collection, "doc": doc})
	if err != nil {
		return nil, err
	}
	if obj, ok := data.(map[string]any); ok {
		return obj, nil
	}
	return map[string]any{"status": data}, nil
}

// FindOptions narrows a Find. A nil Sort leaves the order to the server.
type FindOptions struct {
	Sort map[string]any
}

func (c *Client) Find(ctx context.Context, collection string, query map[string]any, opts *FindOptions) ([]map[string]any, error) {
	cmd := map[string]any{"cmd": "find", "collection": collection, "query": query}
	if opts != nil && opts.Sort != nil {
		cmd["sort"] = opts.Sort
	}
	data, err := c.call(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return docs(data), nil
}

func (c *Client) Count(ctx context.Context, collection string, query map[string]any) (int, error) {
	data, err := c.call(ctx, map[string]any{"cmd": "count", "collection": collection, "query": query})
	if err != nil {
		return 0, err
	}
	obj, _ := data.(map[string]any)
	n, _ := obj["count"].(float64)
	return int(n), nil
}

// CreateIndex adds a non-unique single-field index.
func (c *Client) CreateIndex(ctx context.Context, collection, field string) error {
	_, err := c.call(ctx, map[string]any{"cmd": "create_index", "collection": collection, "field": field})
	return err
}

func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	_, err := c.call(ctx, map[string]any{"cmd": "create_bucket", "bucket": bucket})
	return err
}

// PutObject stores data under bucket/key. The bytes travel base64 encoded.
func (c *Client) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) (map[string]any, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	out, err := c.call(ctx, map[string]any{
		"cmd":          "put_object",
		"bucket":       bucket,
		"key":          key,
		"data":         base64.StdEncoding.EncodeToString(data),
		"content_type": contentType,
	})
	if err != nil {
		return nil, err
	}
	meta, _ := out.(map[string]any)
	return meta, nil
}

// GetObject returns the stored bytes and the object's metadata.
func (c *Client) GetObject(ctx context.Context, bucket, key string) ([]byte, map[string]any, error) {
	out, err := c.call(ctx, map[string]any{"cmd": "get_object", "bucket": bucket, "key": key})
	if err != nil {
		return nil, nil, err
	}
	obj, _ := out.(map[string]any)
	encoded, _ := obj["content"].(string)
	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("oxidb: object %s/%s: %w", bucket, key, err)
	}
	meta, _ := obj["metadata"].(map[string]any)
	return content, meta, nil
}

func docs(data any) []map[string]any {
	items, _ := data.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if doc, ok := item.(map[string]any); ok {
			out = append(out, doc)
		}
	}
	return out
}
