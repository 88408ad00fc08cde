package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// JobSpec describes one sub-workflow launch derived from a manifest entry and
// its registry record. Immutable once constructed.
type JobSpec struct {
	JobType          string            `json:"job_type" validate:"required"`
	RunLabel         string            `json:"run_label" validate:"required"`
	InputLocator     string            `json:"input_locator" validate:"required"`
	OutputLocator    string            `json:"output_locator" validate:"required"`
	ExtraParameters  map[string]string `json:"extra_parameters,omitempty"`
	JobDefinitionRef string            `json:"job_definition_ref" validate:"required"`
	ExecutionRole    string            `json:"execution_role"`
	ResourceGroup    string            `json:"resource_group"`
}

var jobSpecValidator = validator.New()

// Validate checks required JobSpec fields
func (s *JobSpec) Validate() error {
	if err := jobSpecValidator.Struct(s); err != nil {
		return fmt.Errorf("invalid job spec for %q: %w", s.JobType, err)
	}
	return nil
}

// LaunchOutcome classifies the result of a single launch attempt
type LaunchOutcome string

const (
	LaunchOutcomeSuccess          LaunchOutcome = "success"
	LaunchOutcomeTransientFailure LaunchOutcome = "transient_failure"
	LaunchOutcomeFatalFailure     LaunchOutcome = "fatal_failure"
)

// LaunchAttempt records one call against the workflow-run service. Ephemeral;
// never persisted beyond the launch loop.
type LaunchAttempt struct {
	Spec    JobSpec
	Attempt int // 1-based
	Outcome LaunchOutcome
	JobID   string // Set on success
	JobARN  string // Set on success
	Cause   error  // Set on failure
}

// LaunchedJob identifies a successfully started sub-workflow run. The set of
// LaunchedJobs is the authoritative list the poller tracks for one run.
type LaunchedJob struct {
	JobType string `json:"job_type"`
	JobID   string `json:"job_id"`
	JobARN  string `json:"job_arn"`
}
