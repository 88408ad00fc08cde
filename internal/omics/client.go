package omics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default client-side rate limit (requests per second).
	DefaultRateLimit = 5
)

// RunService is the surface of the workflow-run service the orchestrator
// depends on. The HTTP Client implements it; tests substitute fakes.
type RunService interface {
	StartRun(ctx context.Context, req StartRunRequest) (*StartRunResponse, error)
	GetRun(ctx context.Context, id string) (*RunDetail, error)
	ListWorkflows(ctx context.Context, name string) ([]WorkflowSummary, error)
	CreateWorkflow(ctx context.Context, req CreateWorkflowRequest) (*CreateWorkflowResponse, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

// Client is a workflow-run service API client.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom client-side rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new workflow-run service client.
func NewClient(baseURL, apiToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// errorEnvelope is the error body shape returned by the service
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do performs a request against the API and decodes the response into result.
// Error responses are classified into ThrottleError or APIError.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	// Client-side pacing; the hard quota is still enforced by the caller
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Msg("Omics API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		var envelope errorEnvelope
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			envelope.Message = string(respBody)
		}
		return classifyError(resp.StatusCode, envelope.Code, envelope.Message, path)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// StartRun starts one sub-workflow run.
func (c *Client) StartRun(ctx context.Context, req StartRunRequest) (*StartRunResponse, error) {
	var result StartRunResponse
	if err := c.do(ctx, http.MethodPost, "/runs", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRun retrieves the current state of a run.
func (c *Client) GetRun(ctx context.Context, id string) (*RunDetail, error) {
	var result RunDetail
	if err := c.do(ctx, http.MethodGet, "/runs/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// listWorkflowsResponse wraps a workflow listing
type listWorkflowsResponse struct {
	Items []WorkflowSummary `json:"items"`
}

// ListWorkflows lists registered workflow definitions, optionally filtered by
// exact name.
func (c *Client) ListWorkflows(ctx context.Context, name string) ([]WorkflowSummary, error) {
	path := "/workflows"
	if name != "" {
		path += "?name=" + url.QueryEscape(name)
	}

	var result listWorkflowsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// CreateWorkflow registers a workflow definition.
func (c *Client) CreateWorkflow(ctx context.Context, req CreateWorkflowRequest) (*CreateWorkflowResponse, error) {
	var result CreateWorkflowResponse
	if err := c.do(ctx, http.MethodPost, "/workflows", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteWorkflow removes a workflow definition.
func (c *Client) DeleteWorkflow(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/workflows/"+url.PathEscape(id), nil, nil)
}
