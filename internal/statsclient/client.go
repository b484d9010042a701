// Package statsclient implements relay.StatsClient against a small JSON
// HTTP endpoint, the out-of-scope "external player-statistics lookup"
// collaborator named in spec.md §1/§6. There is no HTTP client library
// anywhere in the teacher or the rest of the retrieval pack — every
// outbound call (the teacher's own fetchLinkPreview in linkpreview.go)
// is hand-rolled net/http — so this follows the same idiom rather than
// importing one.
package statsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// requestTimeout bounds how long a single "-stats" lookup may take,
// mirroring the teacher's linkPreviewTimeout: chat replies must never
// stall the relay's detached stats goroutine indefinitely.
const requestTimeout = 4 * time.Second

// Client calls a remote stats service over HTTP. The zero value is not
// usable; construct with New.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client that queries baseURL + "/stats" for each lookup.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// statsResponse is the JSON body the stats endpoint returns.
type statsResponse struct {
	Line string `json:"line"`
}

// GetStats implements relay.StatsClient: one request per opponent,
// returning a single formatted reply line (spec §6, §4.4.3 "-stats").
func (c *Client) GetStats(ctx context.Context, name string, race uint32, solo bool) (string, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("race", fmt.Sprintf("%d", race))
	q.Set("solo", fmt.Sprintf("%t", solo))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("statsclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "flo-relay-stats/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("statsclient: request %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("statsclient: %s: unexpected status %d", name, resp.StatusCode)
	}

	var body statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("statsclient: decode response for %s: %w", name, err)
	}
	if body.Line == "" {
		return "", fmt.Errorf("statsclient: empty stats line for %s", name)
	}
	return body.Line, nil
}
