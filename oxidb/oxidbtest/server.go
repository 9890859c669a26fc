// Package oxidbtest runs an in-process stand-in for oxidb-server that speaks
// the same framed JSON protocol. It keeps collections and blob buckets in
// memory and supports the subset of commands the oxidb client exposes.
package oxidbtest

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"
)

type object struct {
	data        []byte
	contentType string
}

// Server is an in-memory oxidb-server.
type Server struct {
	ln net.Listener

	mu          sync.Mutex
	collections map[string][]map[string]any
	nextID      map[string]int
	indexes     map[string][]string
	buckets     map[string]map[string]object
	failures    map[string]string
	delays      map[string]time.Duration
	conns       map[net.Conn]struct{}

	wg sync.WaitGroup
}

// NewServer starts a server on a random loopback port and stops it when the
// test finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("oxidbtest: listen: %v", err)
	}
	s := &Server{
		ln:          ln,
		collections: make(map[string][]map[string]any),
		nextID:      make(map[string]int),
		indexes:     make(map[string][]string),
		buckets:     make(map[string]map[string]object),
		failures:    make(map[string]string),
		delays:      make(map[string]time.Duration),
		conns:       make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Host returns the loopback host the server listens on.
func (s *Server) Host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Close stops accepting connections and closes the open ones.
func (s *Server) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Fail makes every subsequent cmd return an error response with msg.
// An empty msg clears the failure.
func (s *Server) Fail(cmd, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg == "" {
		delete(s.failures, cmd)
		return
	}
	s.failures[cmd] = msg
}

// Delay holds every subsequent reply to cmd back by d. The command itself
// is applied immediately. A zero d clears the delay.
func (s *Server) Delay(cmd string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d <= 0 {
		delete(s.delays, cmd)
		return
	}
	s.delays[cmd] = d
}

// Documents returns a copy of the documents stored in collection.
func (s *Server) Documents(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.collections[collection]))
	for _, d := range s.collections[collection] {
		out = append(out, cloneDoc(d))
	}
	return out
}

// Indexes returns the fields indexed on collection.
func (s *Server) Indexes(collection string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.indexes[collection]...)
}

// Object returns the stored blob and whether it exists.
func (s *Server) Object(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.buckets[bucket][key]
	return o.data, ok
}

// ObjectCount returns the number of blobs in bucket.
func (s *Server) ObjectCount(bucket string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets[bucket])
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(conn, lenBuf); err != nil {
			return
		}
		payload := make([]byte, binary.LittleEndian.Uint32(lenBuf))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		var req map[string]any
		var resp map[string]any
		if err := json.Unmarshal(payload, &req); err != nil {
			resp = errorResponse("invalid json")
		} else {
			resp = s.dispatch(req)
		}

		cmd, _ := req["cmd"].(string)
		s.mu.Lock()
		delay := s.delays[cmd]
		s.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}

		out, _ := json.Marshal(resp)
		frame := make([]byte, 4+len(out))
		binary.LittleEndian.PutUint32(frame, uint32(len(out)))
		copy(frame[4:], out)
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

func okResponse(data any) map[string]any {
	return map[string]any{"ok": true, "data": data}
}

func errorResponse(msg string) map[string]any {
	return map[string]any{"ok": false, "error": msg}
}

func (s *Server) dispatch(req map[string]any) map[string]any {
	cmd, _ := req["cmd"].(string)
	collection, _ := req["collection"].(string)
	bucket, _ := req["bucket"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg, ok := s.failures[cmd]; ok {
		return errorResponse(msg)
	}

	switch cmd {
	case "ping":
		return okResponse("pong")

	case "create_collection":
		if _, ok := s.collections[collection]; !ok {
			s.collections[collection] = nil
		}
		return okResponse("ok")

	case "create_index":
		field, _ := req["field"].(string)
		s.indexes[collection] = append(s.indexes[collection], field)
		return okResponse("ok")

	case "insert":
		doc, ok := req["doc"].(map[string]any)
		if !ok {
			return errorResponse("insert: doc must be an object")
		}
		s.nextID[collection]++
		id := float64(s.nextID[collection])
		stored := cloneDoc(doc)
		stored["_id"] = id
		s.collections[collection] = append(s.collections[collection], stored)
		return okResponse(map[string]any{"id": id})

	case "find":
		query, _ := req["query"].(map[string]any)
		docs := s.match(collection, query)
		if sortSpec, ok := req["sort"].(map[string]any); ok {
			sortDocs(docs, sortSpec)
		}
		out := make([]any, 0, len(docs))
		for _, d := range docs {
			out = append(out, d)
		}
		return okResponse(out)

	case "count":
		query, _ := req["query"].(map[string]any)
		return okResponse(map[string]any{"count": len(s.match(collection, query))})

	case "create_bucket":
		if _, ok := s.buckets[bucket]; !ok {
			s.buckets[bucket] = make(map[string]object)
		}
		return okResponse("ok")

	case "put_object":
		objects, ok := s.buckets[bucket]
		if !ok {
			return errorResponse(fmt.Sprintf("bucket %q not found", bucket))
		}
		key, _ := req["key"].(string)
		raw, _ := req["data"].(string)
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return errorResponse("put_object: invalid base64")
		}
		ct, _ := req["content_type"].(string)
		objects[key] = object{data: data, contentType: ct}
		return okResponse(map[string]any{"bucket": bucket, "key": key, "size": len(data)})

	case "get_object":
		key, _ := req["key"].(string)
		o, ok := s.buckets[bucket][key]
		if !ok {
			return errorResponse(fmt.Sprintf("object %q not found", key))
		}
		return okResponse(map[string]any{
			"content":  base64.StdEncoding.EncodeToString(o.data),
			"metadata": map[string]any{"content_type": o.contentType, "size": len(o.data)},
		})
	}

	return errorResponse(fmt.Sprintf("unknown command %q", cmd))
}

// match returns copies of the documents whose top-level fields equal every
// field of query.
func (s *Server) match(collection string, query map[string]any) []map[string]any {
	var out []map[string]any
	for _, d := range s.collections[collection] {
		if matches(d, query) {
			out = append(out, cloneDoc(d))
		}
	}
	return out
}

func matches(doc, query map[string]any) bool {
	for k, want := range query {
		if !reflect.DeepEqual(doc[k], want) {
			return false
		}
	}
	return true
}

// sortDocs applies a single-key sort; extra keys in order are ignored.
func sortDocs(docs []map[string]any, order map[string]any) {
	var field string
	desc := false
	for f, dir := range order {
		field = f
		if d, ok := dir.(float64); ok && d < 0 {
			desc = true
		}
		break
	}
	if field == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if desc {
			return lessValue(docs[j][field], docs[i][field])
		}
		return lessValue(docs[i][field], docs[j][field])
	})
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case string:
		bv, _ := b.(string)
		return av < bv
	}
	return false
}

func cloneDoc(d map[string]any) map[string]any {
	raw, err := json.Marshal(d)
	if err != nil {
		panic(errors.New("oxidbtest: document is not JSON-serializable"))
	}
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return out
}
