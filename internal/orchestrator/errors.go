package orchestrator

import (
	"errors"
	"fmt"
)

// ErrNoJobsLaunched is returned when a non-empty launch batch produced no
// running jobs. Fatal for the run: there is nothing to track and nothing to
// report.
var ErrNoJobsLaunched = errors.New("no jobs were launched, check samplesheet availability")

// ErrNothingRequested is returned when a manifest resolved to zero job specs
var ErrNothingRequested = errors.New("manifest requested no launchable job types")

// ConfigurationError marks a job type that was requested by the manifest but
// has no registry entry. Fatal for that job type only; the batch continues.
type ConfigurationError struct {
	JobType string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no registry entry for job type %q: %v", e.JobType, e.Cause)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// LaunchFailure marks one job that could not be launched, either because of a
// fatal API error or because throttling retries were exhausted. The job is
// excluded from polling; the batch continues.
type LaunchFailure struct {
	JobType  string
	Attempts int
	Cause    error
}

func (e *LaunchFailure) Error() string {
	return fmt.Sprintf("failed to launch %q after %d attempt(s): %v", e.JobType, e.Attempts, e.Cause)
}

func (e *LaunchFailure) Unwrap() error {
	return e.Cause
}

// NotificationError marks a failed delivery of the final run report. Never
// swallowed: the report is the only externally visible signal of run outcome.
type NotificationError struct {
	RunLabel string
	Cause    error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to deliver run report for %q: %v", e.RunLabel, e.Cause)
}

func (e *NotificationError) Unwrap() error {
	return e.Cause
}
