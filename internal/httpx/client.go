package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// defaultUserAgent mirrors a desktop browser; the content host serves
// stripped-down pages to unknown agents.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Client wraps HTTP operations shared by the catalog client, the content
// fetcher and the image acquirer.
//
// Client provides:
//   - A browser-like User-Agent header
//   - Timeout handling
//   - Status classification via StatusError
//
// Example usage:
//
//	client := httpx.NewClient(30 * time.Second)
//
//	html, err := client.GetString(ctx, unitURL)
//	if httpx.IsNotFound(err) {
//	    // trigger URL recovery
//	}
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP client with the given timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s (%s)", e.Code, http.StatusText(e.Code), e.URL)
}

// StatusCode extracts the HTTP status from an error chain, or 0 when the
// error was not a status failure (network error, timeout, ...).
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// IsNotFound reports whether err is an HTTP 404.
func IsNotFound(err error) bool { return StatusCode(err) == http.StatusNotFound }

// IsForbidden reports whether err is an HTTP 403.
func IsForbidden(err error) bool { return StatusCode(err) == http.StatusForbidden }

// IsRateLimited reports whether err is an HTTP 429.
func IsRateLimited(err error) bool { return StatusCode(err) == http.StatusTooManyRequests }

// IsTimeout reports whether err is a network timeout.
func IsTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsTransient reports whether a failed request is worth retrying:
// HTTP 429, any 5xx, or a network-level error.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if code := StatusCode(err); code != 0 {
		return code == http.StatusTooManyRequests || code >= 500
	}
	return true
}

// Get performs a GET request and returns the response body as bytes.
// Extra headers may be nil.
//
// Returns a *StatusError for any non-2xx response.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	return io.ReadAll(resp.Body)
}

// GetString performs a GET request and returns the body as a string.
// This is the convenience wrapper used for HTML pages.
func (c *Client) GetString(ctx context.Context, rawURL string) (string, error) {
	body, err := c.Get(ctx, rawURL, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetJSON performs a GET request with query parameters and decodes the
// JSON response into v.
//
// Example:
//
//	var page catalogPage
//	err := client.GetJSON(ctx, baseURL, url.Values{"type": {"modules"}}, &page)
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, v any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if params != nil {
		q := u.Query()
		for k, vals := range q {
			params[k] = vals
		}
		u.RawQuery = params.Encode()
	}

	body, err := c.Get(ctx, u.String(), http.Header{"Accept": {"application/json"}})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}
	return nil
}

// DownloadBytes downloads a binary payload into memory with an image
// Accept header and an optional Referer. Some image hosts refuse
// requests without the referring page.
func (c *Client) DownloadBytes(ctx context.Context, rawURL, referer string) ([]byte, error) {
	header := http.Header{
		"Accept": {"image/avif,image/webp,image/apng,image/*,*/*;q=0.8"},
	}
	if referer != "" {
		header.Set("Referer", referer)
	}
	return c.Get(ctx, rawURL, header)
}
