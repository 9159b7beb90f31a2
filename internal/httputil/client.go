// Package httputil holds the JSON response helpers shared by the HTTP
// handlers and a client abstraction for talking to them.
package httputil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// HTTPClient abstracts HTTP operations for testability.
// Use StandardClient in production and HandlerClient or MockHTTPClient in
// tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StandardClient wraps *http.Client to implement HTTPClient.
type StandardClient struct {
	*http.Client
}

// NewStandardClient creates a new StandardClient wrapping c, or
// http.DefaultClient when c is nil.
func NewStandardClient(c *http.Client) *StandardClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &StandardClient{Client: c}
}

// Do sends an HTTP request.
func (c *StandardClient) Do(req *http.Request) (*http.Response, error) {
	return c.Client.Do(req)
}

// HandlerClient serves requests in-process with an http.Handler.
type HandlerClient struct {
	Handler http.Handler
}

// Do runs req through the handler and returns the recorded response.
func (c HandlerClient) Do(req *http.Request) (*http.Response, error) {
	if req.RemoteAddr == "" {
		req.RemoteAddr = "127.0.0.1:0"
	}
	rec := httptest.NewRecorder()
	c.Handler.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

// MockResponse defines a canned HTTP response for testing.
type MockResponse struct {
	StatusCode int
	Body       string
	Error      error
}

// MockHTTPClient replays queued responses and records requests.
type MockHTTPClient struct {
	mu        sync.Mutex
	requests  []*http.Request
	responses []MockResponse
}

// NewMockHTTPClient creates a mock replaying responses in order. Once the
// queue is drained every request gets an empty 200.
func NewMockHTTPClient(responses ...MockResponse) *MockHTTPClient {
	return &MockHTTPClient{responses: responses}
}

// Do records the request and returns the next queued response.
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	next := MockResponse{StatusCode: http.StatusOK}
	if len(m.responses) > 0 {
		next, m.responses = m.responses[0], m.responses[1:]
	}
	if next.Error != nil {
		return nil, next.Error
	}
	return &http.Response{
		StatusCode: next.StatusCode,
		Body:       io.NopCloser(bytes.NewBufferString(next.Body)),
		Header:     http.Header{"Content-Type": {"application/json"}},
		Request:    req,
	}, nil
}

// Requests returns the requests recorded so far.
func (m *MockHTTPClient) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.requests...)
}
