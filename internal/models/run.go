package models

import (
	"time"
)

// RunState is the closed status vocabulary for tracked sub-workflow runs.
// Provider status strings are converted to RunState at the API boundary and
// never propagated past it.
type RunState string

const (
	RunStateQueued    RunState = "queued"
	RunStateStarting  RunState = "starting"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
	RunStateCancelled RunState = "cancelled"

	// RunStateUnknown is synthesized locally when a status query fails; the
	// workflow-run service never returns it.
	RunStateUnknown RunState = "unknown"
)

// RunStateFromProvider maps a provider status string onto the closed RunState
// enum. Unrecognized values map to Unknown, which is not terminal, so an
// unexpected provider state forces continued polling instead of a silent stop.
func RunStateFromProvider(status string) RunState {
	switch status {
	case "COMPLETED":
		return RunStateCompleted
	case "FAILED":
		return RunStateFailed
	case "CANCELLED":
		return RunStateCancelled
	case "STARTING":
		return RunStateStarting
	case "PENDING":
		return RunStateQueued
	case "RUNNING", "STOPPING", "DELETED":
		return RunStateRunning
	default:
		return RunStateUnknown
	}
}

// IsTerminal returns true if no further transition can occur from the state.
// Unknown is explicitly not terminal.
func (s RunState) IsTerminal() bool {
	return s == RunStateCompleted || s == RunStateFailed || s == RunStateCancelled
}

// IsFailure returns true if the state counts as a failure signal for the run.
// Unknown counts: a poll-query error surfaces as a problem rather than being
// silently absorbed into an overall success.
func (s RunState) IsFailure() bool {
	return s == RunStateFailed || s == RunStateCancelled || s == RunStateUnknown
}

// JobStatusSnapshot is the point-in-time status of one tracked job
type JobStatusSnapshot struct {
	JobType   string     `json:"job_type"`
	JobID     string     `json:"job_id"`
	State     RunState   `json:"state"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// RunAggregate is the run-level summary computed from the current snapshot
// set. It is recomputed fresh on every poll and never merged with a prior
// aggregate.
type RunAggregate struct {
	RunLabel    string              `json:"run_label"`
	JobStatuses []JobStatusSnapshot `json:"job_statuses"`
	AllTerminal bool                `json:"all_terminal"`
	AnyFailed   bool                `json:"any_failed"`
}

// NewRunAggregate computes the aggregate as a pure function of the snapshots
func NewRunAggregate(runLabel string, snapshots []JobStatusSnapshot) RunAggregate {
	agg := RunAggregate{
		RunLabel:    runLabel,
		JobStatuses: snapshots,
		AllTerminal: true,
	}
	for _, snap := range snapshots {
		if !snap.State.IsTerminal() {
			agg.AllTerminal = false
		}
		if snap.State.IsFailure() {
			agg.AnyFailed = true
		}
	}
	return agg
}

// RunPhase tracks where a RunRecord sits in its lifecycle
type RunPhase string

const (
	RunPhaseLaunching RunPhase = "launching"
	RunPhasePolling   RunPhase = "polling"
	RunPhaseFinished  RunPhase = "finished"
	RunPhaseFailed    RunPhase = "failed"
)

// RunRecord is the persisted state of one orchestration run. The launcher and
// poller are stateless between invocations; everything they need to resume is
// carried here by the scheduling substrate.
type RunRecord struct {
	RunLabel      string        `json:"run_label" badgerhold:"key"`
	Phase         RunPhase      `json:"phase"`
	LaunchedJobs  []LaunchedJob `json:"launched_jobs"`
	LastAggregate *RunAggregate `json:"last_aggregate,omitempty"`
	PollCycles    int           `json:"poll_cycles"`
	Error         string        `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
}
