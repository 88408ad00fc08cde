package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/strand/internal/models"
	"github.com/ternarybob/strand/internal/omics"
)

// DefaultInterLaunchInterval matches the observed start-run quota of the
// workflow-run service: 0.1 TPS, one request per 10 seconds.
const DefaultInterLaunchInterval = 10 * time.Second

// Launcher starts sub-workflow runs strictly one at a time, paced by a fixed
// inter-launch interval, retrying throttled attempts with exponential backoff.
// Concurrency would violate the service's launch quota, so there is none.
type Launcher struct {
	api      omics.RunService
	retry    *RetryConfig
	interval time.Duration
	logger   arbor.ILogger

	// Injectable for tests; default to the real clock
	sleep func(time.Duration)
	now   func() time.Time
}

// NewLauncher creates a new rate-limited launcher
func NewLauncher(api omics.RunService, retry *RetryConfig, interval time.Duration, logger arbor.ILogger) *Launcher {
	if retry == nil {
		retry = NewDefaultRetryConfig()
	}
	if interval <= 0 {
		interval = DefaultInterLaunchInterval
	}
	return &Launcher{
		api:      api,
		retry:    retry,
		interval: interval,
		logger:   logger,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// Launch starts each spec in order and returns the jobs that actually
// started. A job whose launch hits a fatal error or exhausts its retries is
// recorded as not launched and the batch continues. Returns
// ErrNoJobsLaunched when the input was non-empty but nothing started.
//
// No de-duplication is performed against previously launched jobs for the
// same run label: calling Launch twice for the same manifest starts duplicate
// runs.
func (l *Launcher) Launch(ctx context.Context, specs []models.JobSpec) ([]models.LaunchedJob, error) {
	launched := make([]models.LaunchedJob, 0, len(specs))

	for i, spec := range specs {
		// Fixed pacing between consecutive jobs; the first launches immediately
		if i > 0 {
			l.logger.Debug().
				Dur("interval", l.interval).
				Str("job_type", spec.JobType).
				Msg("Waiting before next launch")
			l.sleep(l.interval)
		}

		if err := ctx.Err(); err != nil {
			return launched, fmt.Errorf("launch batch cancelled: %w", err)
		}

		job, err := l.launchOne(ctx, spec)
		if err != nil {
			l.logger.Error().
				Err(err).
				Str("run_label", spec.RunLabel).
				Str("job_type", spec.JobType).
				Msg("Job launch failed, continuing with batch")
			continue
		}

		launched = append(launched, *job)
		l.logger.Info().
			Str("run_label", spec.RunLabel).
			Str("job_type", spec.JobType).
			Str("job_id", job.JobID).
			Msg("Job launched")
	}

	if len(specs) > 0 && len(launched) == 0 {
		return nil, ErrNoJobsLaunched
	}

	return launched, nil
}

// launchOne runs the per-job retry state machine. Throttling signals are
// retried with exponential backoff up to MaxAttempts; any other error is
// fatal for the job immediately.
func (l *Launcher) launchOne(ctx context.Context, spec models.JobSpec) (*models.LaunchedJob, error) {
	req := l.buildRequest(spec)

	for attempt := 1; attempt <= l.retry.MaxAttempts; attempt++ {
		resp, err := l.api.StartRun(ctx, req)
		if err == nil {
			return &models.LaunchedJob{
				JobType: spec.JobType,
				JobID:   resp.ID,
				JobARN:  resp.ARN,
			}, nil
		}

		if !omics.IsThrottle(err) {
			return nil, &LaunchFailure{JobType: spec.JobType, Attempts: attempt, Cause: err}
		}

		if attempt == l.retry.MaxAttempts {
			return nil, &LaunchFailure{JobType: spec.JobType, Attempts: attempt, Cause: err}
		}

		delay := l.retry.Backoff(attempt)
		l.logger.Warn().
			Str("job_type", spec.JobType).
			Int("attempt", attempt).
			Int("max_attempts", l.retry.MaxAttempts).
			Dur("delay", delay).
			Msg("Launch throttled, retrying after backoff")
		l.sleep(delay)
	}

	// Unreachable: the loop always returns
	return nil, &LaunchFailure{JobType: spec.JobType, Attempts: l.retry.MaxAttempts}
}

// buildRequest maps a JobSpec onto a start-run request. The run name embeds
// the launch timestamp so two launches of the same job type for the same run
// label remain distinguishable.
func (l *Launcher) buildRequest(spec models.JobSpec) omics.StartRunRequest {
	startedAt := l.now().UTC()

	params := map[string]string{
		"input":  spec.InputLocator,
		"outdir": spec.OutputLocator,
	}
	for k, v := range spec.ExtraParameters {
		params[k] = v
	}

	return omics.StartRunRequest{
		WorkflowID: spec.JobDefinitionRef,
		Name:       fmt.Sprintf("%s-%s-%s", spec.JobType, spec.RunLabel, startedAt.Format("20060102150405")),
		RoleARN:    spec.ExecutionRole,
		Parameters: params,
		OutputURI:  spec.OutputLocator,
		RunGroupID: spec.ResourceGroup,
		Tags: map[string]string{
			"run_label":  spec.RunLabel,
			"workflow":   spec.JobType,
			"start_time": startedAt.Format(time.RFC3339),
		},
	}
}
