package labctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/modellab/internal/domain/model"
)

// Client talks to a running modellab server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// EditResponse mirrors the body of a weights POST.
type EditResponse struct {
	Status    string       `json:"status"`
	EditID    string       `json:"edit_id"`
	Duplicate bool         `json:"duplicate"`
	Result    model.Result `json:"result"`
}

type setBody struct {
	EditID string  `json:"edit_id,omitempty"`
	Key    string  `json:"key"`
	Value  float64 `json:"value"`
}

type resetBody struct {
	EditID string `json:"edit_id,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// Health checks that /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: healthz returned %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Lab fetches the full result and the raw body it was decoded from.
func (c *Client) Lab(ctx context.Context) (model.Result, []byte, error) {
	var res model.Result
	raw, err := c.getJSON(ctx, "/lab", &res)
	return res, raw, err
}

// Submit posts e and decodes the edit response.
func (c *Client) Submit(ctx context.Context, e model.Edit) (EditResponse, error) {
	var (
		path string
		body any
	)
	switch e.Op {
	case model.EditReset:
		path, body = "/weights/reset", resetBody{EditID: e.ID, Kind: string(e.Kind)}
	default:
		path, body = "/weights/"+string(e.Kind), setBody{EditID: e.ID, Key: e.Key, Value: e.Value}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return EditResponse{}, fmt.Errorf("marshal edit: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return EditResponse{}, err
	}
	raw, err := readResponseBody(resp)
	if err != nil {
		return EditResponse{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return EditResponse{}, fmt.Errorf("%w: POST %s returned %d: %s", ErrStatus, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out EditResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return EditResponse{}, fmt.Errorf("decode edit response: %w", err)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	raw, err := readResponseBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s returned %d", ErrStatus, path, resp.StatusCode)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return raw, nil
}
