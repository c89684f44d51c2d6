package clipsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/forPelevin/clipmark/internal/ports"
	"github.com/forPelevin/clipmark/internal/types"
)

const (
	generatePath   = "/api/generate-clips"
	requestTimeout = 2 * time.Minute
)

// Client calls a remote clip generation endpoint, usually another clipmark
// serve instance.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: requestTimeout}
	}
	return &Client{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), http: hc}
}

func (c *Client) Generate(ctx context.Context, transcript string) ([]types.SegmentCandidate, error) {
	body, err := json.Marshal(map[string]string{"transcript": transcript})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ports.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ports.ErrNetworkFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ports.ErrNetworkFailure, errorText(resp.StatusCode, rb))
	}
	return ports.DecodeCandidates(rb)
}

// errorText prefers the "error" field of a JSON error body.
func errorText(status int, body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		if e.Details != "" {
			return fmt.Sprintf("status %d: %s (%s)", status, e.Error, e.Details)
		}
		return fmt.Sprintf("status %d: %s", status, e.Error)
	}
	return fmt.Sprintf("request failed with status %d", status)
}
