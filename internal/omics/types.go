// Package omics provides a client for the workflow-run service that executes
// genomics sub-workflow runs. This package centralizes all workflow-run API
// interactions for the application; provider status strings do not escape it
// unconverted.
package omics

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// StartRunRequest starts one sub-workflow run
type StartRunRequest struct {
	WorkflowID string            `json:"workflowId"`
	Name       string            `json:"name"`
	RoleARN    string            `json:"roleArn,omitempty"`
	Parameters map[string]string `json:"parameters"`
	OutputURI  string            `json:"outputUri"`
	RunGroupID string            `json:"runGroupId,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// StartRunResponse identifies the started run
type StartRunResponse struct {
	ID  string `json:"id"`
	ARN string `json:"arn"`
}

// RunDetail is the current state of a run as reported by the service
type RunDetail struct {
	ID            string            `json:"id"`
	ARN           string            `json:"arn"`
	Name          string            `json:"name"`
	Status        string            `json:"status"` // Provider vocabulary; convert at the boundary
	StatusMessage string            `json:"statusMessage,omitempty"`
	Parameters    map[string]string `json:"parameters,omitempty"`
	StartTime     *time.Time        `json:"startTime,omitempty"`
	StopTime      *time.Time        `json:"stopTime,omitempty"`
}

// WorkflowSummary is one entry from a workflow definition listing
type WorkflowSummary struct {
	ID   string `json:"id"`
	ARN  string `json:"arn"`
	Name string `json:"name"`
}

// CreateWorkflowRequest registers a workflow definition
type CreateWorkflowRequest struct {
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	DefinitionURI   string            `json:"definitionUri"`
	StorageCapacity int               `json:"storageCapacity,omitempty"`
	Tags            map[string]string `json:"tags,omitempty"`
}

// CreateWorkflowResponse identifies the registered definition
type CreateWorkflowResponse struct {
	ID  string `json:"id"`
	ARN string `json:"arn"`
}

// APIError represents a non-throttling error from the workflow-run service.
// It is fatal for the operation that produced it and is never retried.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("omics API error: %s %s (status: %d, endpoint: %s)", e.Code, e.Message, e.StatusCode, e.Endpoint)
}

// ThrottleError represents a throttling signal from the service. Callers may
// retry after a backoff.
type ThrottleError struct {
	Code       string
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("omics API throttled (%s), retry after %v", e.Code, e.RetryAfter)
}

// throttleCodes are the error codes the service uses to signal rate limiting
var throttleCodes = map[string]bool{
	"ThrottlingException":      true,
	"TooManyRequestsException": true,
}

// IsThrottle reports whether an error is a retryable throttling signal
func IsThrottle(err error) bool {
	var te *ThrottleError
	return errors.As(err, &te)
}

// classifyError converts an HTTP error response into a typed error
func classifyError(statusCode int, code, message, endpoint string) error {
	if statusCode == http.StatusTooManyRequests || throttleCodes[code] {
		return &ThrottleError{Code: code, RetryAfter: time.Second}
	}
	return &APIError{StatusCode: statusCode, Code: code, Message: message, Endpoint: endpoint}
}
