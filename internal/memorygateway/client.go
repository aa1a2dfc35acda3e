package memorygateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/steveyegge/vc-sentinel/internal/tracker"
	"github.com/steveyegge/vc-sentinel/internal/vector"
)

// Client talks to a running Server over its Unix domain socket. It
// satisfies both tracker.MemoryQuerier and tracker.Rememberer so the
// tracker package's mentor and auto-remember steps can use it directly,
// without depending on memorygateway's implementation.
//
// Shape ported from internal/control/client.go: dial-with-timeout,
// encode one request, decode one response, close.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a gateway client dialing socketPath, with a default
// 10s per-call timeout.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: 10 * time.Second}
}

// SetTimeout overrides the per-call timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

func (c *Client) call(req Request, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}

	conn, err := net.DialTimeout("unix", c.socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("memorygateway: connecting to gateway (is it running?): %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("memorygateway: setting deadline: %w", err)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("memorygateway: sending request: %w", err)
	}

	limited := io.LimitReader(conn, MaxResponseBytes)
	var resp Response
	if err := json.NewDecoder(limited).Decode(&resp); err != nil {
		return nil, fmt.Errorf("memorygateway: reading response: %w", err)
	}
	if !resp.OK {
		return &resp, fmt.Errorf("memorygateway: %s", resp.Error)
	}
	return &resp, nil
}

// Ping checks gateway liveness.
func (c *Client) Ping() error {
	_, err := c.call(Request{Method: MethodPing}, 2*time.Second)
	return err
}

// Available reports whether the gateway can currently be reached,
// satisfying tracker.Rememberer.
func (c *Client) Available() bool {
	return c.Ping() == nil
}

// Query performs a best-effort similarity search over the knowledge
// collection, satisfying tracker.MemoryQuerier.
func (c *Client) Query(query string, nResults int, timeout time.Duration) (*tracker.MemoryQueryResponse, error) {
	resp, err := c.call(Request{
		Method:     MethodQuery,
		Collection: string(vector.CollectionKnowledge),
		Params: map[string]any{
			"query_texts": []string{query},
			"n_results":   nResults,
		},
	}, timeout)
	if err != nil {
		return nil, err
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		return &tracker.MemoryQueryResponse{}, nil
	}
	return &tracker.MemoryQueryResponse{
		IDs:       toStringSlice(result["ids"]),
		Documents: toStringSlice(result["documents"]),
		Distances: toFloatSlice(result["distances"]),
	}, nil
}

// Remember performs an immediate best-effort auto-remember save,
// satisfying tracker.Rememberer.
func (c *Client) Remember(content, context, tags string) error {
	_, err := c.call(Request{
		Method: MethodAutoRemember,
		Params: map[string]any{
			"content": content,
			"context": context,
			"tags":    tags,
		},
	}, c.timeout)
	return err
}

// FlushQueue asks the gateway to drain its capture queue, returning the
// number of observations drained.
func (c *Client) FlushQueue() (int, error) {
	resp, err := c.call(Request{Method: MethodFlushQueue}, 30*time.Second)
	if err != nil {
		return 0, err
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		return 0, nil
	}
	n, _ := result["drained"].(float64)
	return int(n), nil
}

// Count returns the number of records in collection.
func (c *Client) Count(collection vector.Collection) (int, error) {
	resp, err := c.call(Request{Method: MethodCount, Collection: string(collection)}, c.timeout)
	if err != nil {
		return 0, err
	}
	n, _ := resp.Result.(float64)
	return int(n), nil
}

func toStringSlice(v any) []string {
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

func toFloatSlice(v any) []float64 {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(items))
	for _, it := range items {
		if f, ok := it.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}
