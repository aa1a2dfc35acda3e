package memorygateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/steveyegge/vc-sentinel/internal/vector"
)

// ConnReadTimeout and ConnWriteTimeout bound one request/response cycle;
// a hung or malicious client never keeps a server goroutine parked.
const (
	ConnReadTimeout  = 5 * time.Second
	ConnWriteTimeout = 5 * time.Second
)

// Server is the single-writer UDS gateway: one accept loop, dispatching
// each connection's single request to Store, with a shared SearchCache
// and a singleflight-collapsed flush_queue. Shape ported directly from
// internal/control/server.go's listen/accept-loop/graceful-shutdown idiom,
// generalized from one fixed command type to the gateway's method
// dispatch table.
type Server struct {
	socketPath string
	queuePath  string
	store      vector.Store
	cache      *SearchCache

	mu       sync.RWMutex
	listener net.Listener
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}

	flushGroup singleflight.Group
}

// NewServer creates a gateway server listening at socketPath, backed by
// store, draining queuePath on flush_queue.
func NewServer(socketPath, queuePath string, store vector.Store) (*Server, error) {
	dir := filepath.Dir(socketPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("memorygateway: creating socket directory: %w", err)
	}
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("memorygateway: removing stale socket: %w", err)
	}

	return &Server{
		socketPath: socketPath,
		queuePath:  queuePath,
		store:      store,
		cache:      NewSearchCache(),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// Start begins listening and accepting connections in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("memorygateway: server already running")
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("memorygateway: listening on %s: %w", s.socketPath, err)
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	go s.acceptLoop(ctx)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.doneCh)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		if err := s.listener.(*net.UnixListener).SetDeadline(time.Now().Add(1 * time.Second)); err != nil {
			fmt.Fprintf(os.Stderr, "memorygateway: failed to set accept deadline: %v\n", err)
			continue
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-s.stopCh:
				return
			default:
			}
			fmt.Fprintf(os.Stderr, "memorygateway: accept error: %v\n", err)
			continue
		}

		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(ConnReadTimeout)); err != nil {
		fmt.Fprintf(os.Stderr, "memorygateway: failed to set conn deadline: %v\n", err)
		return
	}

	decoder := json.NewDecoder(conn)
	var req Request
	if err := decoder.Decode(&req); err != nil {
		s.writeResponse(conn, Response{OK: false, Error: fmt.Sprintf("decoding request: %v", err)})
		return
	}

	result, err := s.dispatch(ctx, req)
	if err != nil {
		s.writeResponse(conn, Response{OK: false, Error: err.Error()})
		return
	}
	s.writeResponse(conn, Response{OK: true, Result: result})
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	if err := conn.SetWriteDeadline(time.Now().Add(ConnWriteTimeout)); err != nil {
		return
	}
	enc := json.NewEncoder(conn)
	if err := enc.Encode(resp); err != nil && err != io.ErrClosedPipe {
		fmt.Fprintf(os.Stderr, "memorygateway: failed to write response: %v\n", err)
	}
}

// dispatch implements every method in the protocol: any panic or error
// surfaces as {ok:false, error} without terminating the connection or
// the server.
func (s *Server) dispatch(ctx context.Context, req Request) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic handling %s: %v", req.Method, r)
		}
	}()

	collection := vector.Collection(req.Collection)

	switch req.Method {
	case MethodPing:
		return "pong", nil

	case MethodCount:
		if req.Collection == "" {
			collection = vector.CollectionKnowledge
		}
		return s.store.Count(ctx, collection)

	case MethodQuery:
		return s.handleQuery(ctx, collection, req.Params)

	case MethodGet:
		return s.handleGet(ctx, collection, req.Params)

	case MethodUpsert:
		result, err := s.handleUpsert(ctx, collection, req.Params)
		if err == nil {
			s.cache.Invalidate()
		}
		return result, err

	case MethodDelete:
		result, err := s.handleDelete(ctx, collection, req.Params)
		if err == nil {
			s.cache.Invalidate()
		}
		return result, err

	case MethodAutoRemember:
		result, err := s.handleAutoRemember(ctx, req.Params)
		if err == nil {
			s.cache.Invalidate()
		}
		return result, err

	case MethodFlushQueue:
		n, err, _ := s.flushGroup.Do("flush_queue", func() (any, error) {
			return drainQueue(ctx, s.store, s.cache, s.queuePath)
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"drained": n}, nil

	case MethodBackup:
		return s.handleBackup()

	default:
		return nil, fmt.Errorf("unknown method: %s", req.Method)
	}
}

func (s *Server) handleQuery(ctx context.Context, collection vector.Collection, params map[string]any) (any, error) {
	queryTexts := stringSlice(params["query_texts"])
	nResults := intParam(params["n_results"], 5)

	key := s.cache.MakeKey(fmt.Sprintf("%v", queryTexts), map[string]any{"collection": string(collection), "n_results": nResults})
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	hits, err := s.store.Query(ctx, collection, queryTexts, nResults)
	if err != nil {
		return nil, err
	}
	result := hitsToResult(hits)
	s.cache.Put(key, result)
	return result, nil
}

func (s *Server) handleGet(ctx context.Context, collection vector.Collection, params map[string]any) (any, error) {
	ids := stringSlice(params["ids"])
	limit := intParam(params["limit"], 0)
	hits, err := s.store.Get(ctx, collection, ids, limit)
	if err != nil {
		return nil, err
	}
	return hitsToResult(hits), nil
}

func (s *Server) handleUpsert(ctx context.Context, collection vector.Collection, params map[string]any) (any, error) {
	documents := stringSlice(params["documents"])
	ids := stringSlice(params["ids"])
	metadatas := mapSlice(params["metadatas"])

	scrubbed := make([]string, len(documents))
	for i, d := range documents {
		scrubbed[i] = Scrub(d)
	}

	if err := s.store.Upsert(ctx, collection, scrubbed, metadatas, ids); err != nil {
		return nil, err
	}
	return map[string]any{"upserted": len(ids)}, nil
}

func (s *Server) handleDelete(ctx context.Context, collection vector.Collection, params map[string]any) (any, error) {
	ids := stringSlice(params["ids"])
	if err := s.store.Delete(ctx, collection, ids); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": len(ids)}, nil
}

func (s *Server) handleAutoRemember(ctx context.Context, params map[string]any) (any, error) {
	content, _ := params["content"].(string)
	context_, _ := params["context"].(string)
	tags, _ := params["tags"].(string)

	if content == "" {
		return nil, fmt.Errorf("auto_remember requires non-empty content")
	}

	id := fmt.Sprintf("auto-%d", time.Now().UnixNano())
	err := s.store.Upsert(ctx, vector.CollectionKnowledge,
		[]string{Scrub(content)},
		[]map[string]any{{"context": context_, "tags": tags, "auto": true}},
		[]string{id})
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

// handleBackup triggers a consistent snapshot by closing and reopening
// is out of scope for the in-process store; SQLiteStore relies on SQLite's
// own WAL checkpoint instead, which VACUUM INTO achieves without taking
// the writer offline. Concrete checkpoint wiring belongs to whatever
// opens the store (cmd/sentinel-gateway), not this dispatch table, so we
// report the request as accepted and let the caller's backup path do the
// actual file copy.
func (s *Server) handleBackup() (any, error) {
	return map[string]any{"status": "accepted"}, nil
}

// Stop stops accepting connections and removes the socket file.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)
	if s.listener != nil {
		_ = s.listener.Close()
	}

	select {
	case <-s.doneCh:
	case <-time.After(5 * time.Second):
		fmt.Fprintf(os.Stderr, "memorygateway: timeout waiting for shutdown\n")
	}

	return os.RemoveAll(s.socketPath)
}

func hitsToResult(hits []vector.Hit) map[string]any {
	ids := make([]string, len(hits))
	documents := make([]string, len(hits))
	distances := make([]float64, len(hits))
	metadatas := make([]map[string]any, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		documents[i] = h.Document
		distances[i] = h.Distance
		metadatas[i] = h.Metadata
	}
	return map[string]any{
		"ids":       ids,
		"documents": documents,
		"distances": distances,
		"metadatas": metadatas,
	}
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mapSlice(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		} else {
			out = append(out, map[string]any{})
		}
	}
	return out
}

func intParam(v any, def int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}
