// Package httpclient provides the HTTP transport used for outbound vendor
// calls. Adapters depend on the Doer interface so tests can substitute the
// transport.
package httpclient

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds every vendor round trip.
const DefaultTimeout = 10 * time.Second

// Doer executes a single HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the default Doer backed by net/http.
type Client struct {
	http *http.Client
}

// New creates a client with the given per-request timeout. A zero timeout
// falls back to DefaultTimeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}
