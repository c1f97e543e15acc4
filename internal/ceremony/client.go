// Package ceremony talks to the Silent Protocol ceremony backend.
//
// The backend exposes two read-only endpoints per enrollment token: ping
// (queue liveness) and position (how many participants are ahead). Both are
// bearer-token authenticated and may take arbitrarily long to answer while
// the ceremony is busy, so the client deliberately carries no timeout. A
// caller that needs to bail out cancels the request context instead.
package ceremony

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const (
	// DefaultBaseURL is the production ceremony backend.
	DefaultBaseURL = "https://ceremony-backend.silentprotocol.org"

	pingPath     = "/ceremony/ping"
	positionPath = "/ceremony/position"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// PingResult is the body of a successful ping call.
type PingResult struct {
	Status string `json:"status"`
}

// PositionResult is the body of a successful position call. Behind is the
// number of participants ahead in the queue; json.Number keeps it printable
// whether the backend sends it as a number or a string.
type PositionResult struct {
	Behind json.Number `json:"behind"`
}

// Client issues status queries against the ceremony backend. The zero
// timeout on the underlying http.Client is intentional: a slow backend is
// not an error condition here.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a ceremony client. An empty baseURL selects the
// production backend.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Ping queries the ceremony liveness status for one token. A nil result
// means the call failed; the error carries the cause but never the token.
func (c *Client) Ping(ctx context.Context, token string) (*PingResult, error) {
	var res PingResult
	if err := c.get(ctx, pingPath, token, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Position queries the queue position for one token.
func (c *Client) Position(ctx context.Context, token string) (*PositionResult, error) {
	var res PositionResult
	if err := c.get(ctx, positionPath, token, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("ceremony request failed", "path", path, "token", Redact(token), "error", err)
		return fmt.Errorf("ceremony %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("ceremony request rejected", "path", path, "token", Redact(token), "status", resp.StatusCode)
		return fmt.Errorf("ceremony %s: HTTP %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Warn("ceremony response malformed", "path", path, "token", Redact(token), "error", err)
		return fmt.Errorf("ceremony %s: decode body: %w", path, err)
	}
	return nil
}

// Redact returns the display form of a token: an ellipsis followed by its
// last six characters. Full tokens must never reach logs or chat messages.
func Redact(token string) string {
	if len(token) <= 6 {
		return token
	}
	return "..." + token[len(token)-6:]
}

// StatusText renders a ping result for display. A nil result (failed call)
// shows as "Error", a 200 body without a status field as "N/A".
func StatusText(r *PingResult) string {
	if r == nil {
		return "Error"
	}
	if r.Status == "" {
		return "N/A"
	}
	return r.Status
}

// PositionText renders a position result for display, with the same
// Error/N-A convention as StatusText.
func PositionText(r *PositionResult) string {
	if r == nil {
		return "Error"
	}
	if r.Behind == "" {
		return "N/A"
	}
	return r.Behind.String()
}
