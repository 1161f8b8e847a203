// Package sdk is a typed HTTP client for the labscout API.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to a labscout server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithAPIKey sets the bearer token for mutating endpoints.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search ranks opportunities against a free-text query.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var resp SearchResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/opportunities/search", nil, req, &resp)
	return resp, err
}

// UpsertOpportunity creates or replaces an opportunity. The path ID wins
// over any ID in the body.
func (c *Client) UpsertOpportunity(ctx context.Context, id int64, o Opportunity) (Opportunity, error) {
	var resp Opportunity
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/opportunities/%d", id), nil, o, &resp)
	return resp, err
}

// GetOpportunity fetches one opportunity.
func (c *Client) GetOpportunity(ctx context.Context, id int64) (Opportunity, error) {
	var resp Opportunity
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/opportunities/%d", id), nil, nil, &resp)
	return resp, err
}

// DeleteOpportunity removes an opportunity and its embedding.
func (c *Client) DeleteOpportunity(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/opportunities/%d", id), nil, nil, nil)
}

// SetUserInterests stores a user's research interest statement.
func (c *Client) SetUserInterests(ctx context.Context, id int64, interests string) error {
	body := map[string]string{"research_interests": interests}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/users/%d/interests", id), nil, body, nil)
}

// GenerateEmbeddings runs batch embedding generation for a kind
// ("opportunities" or "users").
func (c *Client) GenerateEmbeddings(ctx context.Context, kind string, force bool) (GenerateSummary, error) {
	q := url.Values{}
	if force {
		q.Set("force", "true")
	}
	var resp GenerateSummary
	err := c.do(ctx, http.MethodPost, "/api/v1/embeddings/"+kind, q, nil, &resp)
	return resp, err
}

// EmbeddingStats reports per-kind embedding coverage.
func (c *Client) EmbeddingStats(ctx context.Context) (Stats, error) {
	var resp Stats
	err := c.do(ctx, http.MethodGet, "/api/v1/embeddings/stats", nil, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return parseAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Message = "status " + strconv.Itoa(resp.StatusCode)
	}
	return apiErr
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("labscout API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}
