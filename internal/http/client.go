package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxBytes caps the size of a fetched cover image.
const DefaultMaxBytes = 20 << 20

// Client wraps HTTP operations used to fetch remote cover art.
//
// Client provides:
//   - Configured User-Agent header
//   - Timeout handling
//   - A size cap on response bodies
//
// Example usage:
//
//	client := NewClient()
//	data, err := client.Get(ctx, "https://example.com/cover.png")
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewClient creates a new HTTP client.
//
// The client is configured with:
//   - 60 second timeout
//   - "track-converter" User-Agent header
//   - DefaultMaxBytes response limit
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		userAgent: "track-converter",
		maxBytes:  DefaultMaxBytes,
	}
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns an error if:
//   - The request fails
//   - The response status is not 200 OK
//   - The body is larger than the client's limit
//   - Reading the body fails
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, c.maxBytes)
	}
	return data, nil
}
