package scansim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/rollcall/internal/domain/types"
)

// HTTPClient talks to one station.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	token   string
}

func newHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.client.Do(req)
}

// Health checks GET /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to station: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// PostScan submits one frame and classifies the reply.
func (c *HTTPClient) PostScan(ctx context.Context, f Frame) string {
	at := f.CapturedAt
	resp, err := c.do(ctx, http.MethodPost, "/scans", types.ScanRequest{Payload: f.Payload, CapturedAt: &at})
	if err != nil {
		return resultFailed
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusAccepted:
		return resultAccepted
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return resultRejected
	default:
		return resultFailed
	}
}

// Roster reads GET /roster.
func (c *HTTPClient) Roster(ctx context.Context) (types.RosterResponse, error) {
	var out types.RosterResponse
	resp, err := c.do(ctx, http.MethodGet, "/roster", nil)
	if err != nil {
		return out, fmt.Errorf("failed to fetch roster: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("roster request failed with status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode roster: %w", err)
	}
	return out, nil
}

// pace sleeps until the wall clock catches up with the capture timeline.
func pace(ctx context.Context, start, origin, capturedAt time.Time) error {
	wait := time.Until(start.Add(capturedAt.Sub(origin)))
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
