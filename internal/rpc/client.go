// Package rpc implements the JSON-RPC client used to talk to chain nodes,
// with per-endpoint rate limiting and multi-endpoint failover.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/arcscan/bridge-indexer/pkg/ratelimiter"
)

// RPCRequest represents a JSON-RPC request.
type RPCRequest struct {
	ID      int64  `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// RPCResponse represents a JSON-RPC response.
type RPCResponse struct {
	ID      int64           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Client is a JSON-RPC client bound to a single endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	limiter    *ratelimiter.Pool

	mu    sync.Mutex
	rpcID int64
}

func NewClient(url string, timeout time.Duration, limiter *ratelimiter.Pool) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		limiter:    limiter,
		rpcID:      1,
	}
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) nextIDs(n int) []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = c.rpcID
		c.rpcID++
	}
	return ids
}

// Call performs a single JSON-RPC call.
func (c *Client) Call(ctx context.Context, method string, params any) (*RPCResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.url); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req := &RPCRequest{ID: c.nextIDs(1)[0], JSONRPC: "2.0", Method: method, Params: params}
	raw, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp RPCResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal RPC response: %w", err)
	}
	if resp.Error != nil {
		return &resp, resp.Error
	}
	return &resp, nil
}

// CallBatch posts several requests in a single round trip. Responses are
// returned keyed by request ID; individual entries may carry errors.
func (c *Client) CallBatch(ctx context.Context, requests []*RPCRequest) (map[int64]*RPCResponse, error) {
	if len(requests) == 0 {
		return map[int64]*RPCResponse{}, nil
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.url); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	raw, err := c.post(ctx, requests)
	if err != nil {
		return nil, err
	}

	var responses []*RPCResponse
	if err := json.Unmarshal(raw, &responses); err != nil {
		return nil, fmt.Errorf("unmarshal batch response: %w", err)
	}

	out := make(map[int64]*RPCResponse, len(responses))
	for _, r := range responses {
		out[r.ID] = r
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(raw, 200))
	}
	return raw, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
