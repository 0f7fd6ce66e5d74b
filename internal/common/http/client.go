// Package http wraps net/http with the timeout and default headers an outbound
// API integration needs.
package http

import (
	"net/http"
	"time"
)

// Client sends requests with a fixed timeout and a set of default headers. It
// satisfies the Do-only interface SDK clients accept in place of *http.Client.
type Client struct {
	httpClient *http.Client
	headers    http.Header
}

// Option customises a Client.
type Option func(*Client)

// WithHeader adds a header sent on every request unless the request already sets it.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for key, values := range c.headers {
		if req.Header.Get(key) != "" {
			continue
		}
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return c.httpClient.Do(req)
}
