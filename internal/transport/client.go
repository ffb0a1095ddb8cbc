// Package transport provides the authenticated HTTP client used for all
// management API calls. It applies token authentication and the API's
// media-type headers, and maps error responses to the typed errors in
// pkg/errors so callers never inspect status codes or response text.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/seatsync/seatsync/pkg/errors"
)

const (
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// apiVersion is the pinned REST API version header value.
	apiVersion = "2022-11-28"

	// DefaultHTTPTimeout bounds each request; the reconciliation core
	// has no timeout layer of its own.
	DefaultHTTPTimeout = 30 * time.Second
)

// Client provides HTTP client functionality with authentication.
type Client struct {
	http    *http.Client
	baseURL string
	auth    Authenticator
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. Used in tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a transport client for the given base URL and authenticator.
func New(baseURL string, auth Authenticator, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs an HTTP request with authentication and common headers applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.auth != nil {
		c.auth.Apply(req)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodDelete {
		if req.Body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}

	return c.http.Do(req)
}

// Get performs a GET request against an API path (e.g. "/orgs/acme/members").
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.WrapIO("create", "GET "+path, err)
	}
	return c.Do(req)
}

// Post performs a POST request with a JSON body against an API path.
func (c *Client) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, path, body)
}

// Delete performs a DELETE request, optionally with a JSON body, against
// an API path.
func (c *Client) Delete(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.send(ctx, http.MethodDelete, path, body)
}

// send builds and performs a request with an optional JSON body.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapParse("json", method+" "+path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.WrapIO("create", method+" "+path, err)
	}
	return c.Do(req)
}
