package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/banshee-data/overlap/internal/httputil"
)

// Client calls a running overlap server.
type Client struct {
	BaseURL string
	HTTP    httputil.HTTPClient
}

// NewClient returns a Client for baseURL. A nil hc uses http.DefaultClient.
func NewClient(baseURL string, hc httputil.HTTPClient) *Client {
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

// Query posts req to /api/overlap/query.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/overlap/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")

	var out QueryResponse
	if err := c.do(hreq, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Relation fetches the overlap relation of a run.
func (c *Client) Relation(ctx context.Context, runID string) (*RelationResponse, error) {
	var out RelationResponse
	if err := c.get(ctx, "/api/overlap/relation", url.Values{"run_id": {runID}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Strips fetches the image strips of one camera in a run.
func (c *Client) Strips(ctx context.Context, runID, camera string) (*StripsResponse, error) {
	var out StripsResponse
	if err := c.get(ctx, "/api/overlap/strips", url.Values{"run_id": {runID}, "camera": {camera}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dst interface{}) error {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(hreq, dst)
}

func (c *Client) do(req *http.Request, dst interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if err := httputil.ReadJSON(resp, dst); err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
