// Package live fills the newest heights from a live chain node over
// batched JSON-RPC, transcoding each block into the archive record.
package live

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrBatchProtocol marks a batch-level protocol failure: the node
// answered a batch request with a single error object instead of an
// array, typically because the batch is too large. It is never retried
// here; the caller must resubmit on a later run.
var ErrBatchProtocol = errors.New("batch rejected by node")

// Request is one JSON-RPC 2.0 call inside a batch. IDs are assigned by
// the caller and used only to correlate responses within the batch.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

// Response is one JSON-RPC 2.0 response inside a batch reply.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// NewRequest builds one call with a caller-assigned correlation id.
func NewRequest(id int, method string, params ...any) Request {
	return Request{JSONRPC: "2.0", Method: method, Params: params, ID: id}
}

// Client talks JSON-RPC 2.0 over HTTP with batching and per-call retry.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	maxAttempts int
	retryDelay  time.Duration
	log         *slog.Logger
}

// NewClient creates a client for the given endpoint. Every network call
// carries the fixed timeout; a timeout counts as a transport failure.
func NewClient(endpoint string, timeout time.Duration, maxAttempts int) *Client {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxAttempts: maxAttempts,
		retryDelay:  2 * time.Second,
		log:         slog.Default().With("component", "rpc"),
	}
}

// CallBatch executes a batch round trip. Transport and decode failures
// are retried with exponential backoff up to the attempt ceiling. A
// single error object in place of the response array is ErrBatchProtocol
// and propagates immediately. Responses come back demultiplexed into a
// map keyed by correlation id, since the node may reorder the array.
func (c *Client) CallBatch(ctx context.Context, batch []Request) (map[int]Response, error) {
	if len(batch) == 0 {
		return map[int]Response{}, nil
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<uint(attempt-1))
			c.log.Warn("rpc batch failed, retrying",
				"attempt", attempt,
				"max_attempts", c.maxAttempts,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		responses, err := c.post(ctx, body)
		if err == nil {
			byID := make(map[int]Response, len(responses))
			for _, r := range responses {
				byID[r.ID] = r
			}
			return byID, nil
		}
		if errors.Is(err, ErrBatchProtocol) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("batch failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) ([]Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		// The node answered the whole batch with one object. If it is an
		// error object the batch itself was rejected.
		var single Response
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
		if single.Error != nil {
			return nil, fmt.Errorf("%w: %s", ErrBatchProtocol, single.Error.Message)
		}
		return []Response{single}, nil
	}

	var responses []Response
	if err := json.Unmarshal(trimmed, &responses); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return responses, nil
}

// TipHeight asks the node for its current tip.
func (c *Client) TipHeight(ctx context.Context) (uint64, error) {
	byID, err := c.CallBatch(ctx, []Request{NewRequest(0, "eth_blockNumber")})
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber failed: %w", err)
	}
	resp, ok := byID[0]
	if !ok || resp.Error != nil {
		return 0, fmt.Errorf("eth_blockNumber failed: %v", resp.Error)
	}
	var hexHeight string
	if err := json.Unmarshal(resp.Result, &hexHeight); err != nil {
		return 0, fmt.Errorf("invalid block number response: %w", err)
	}
	return parseHexUint(hexHeight)
}
