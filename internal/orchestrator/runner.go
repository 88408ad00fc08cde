package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
)

// Runner drives one orchestration run end to end: resolve, launch, poll until
// every job is terminal, notify once. The resolver, launcher and poller are
// stateless; everything a run needs between poll cycles is persisted as a
// RunRecord, so the record survives inspection mid-run and runs for different
// manifests share no in-process state.
type Runner struct {
	resolver *Resolver
	launcher *Launcher
	poller   *Poller
	runs     interfaces.RunStorage
	notifier interfaces.Notifier
	events   interfaces.EventService
	logger   arbor.ILogger

	pollInterval time.Duration
	maxCycles    int
}

// NewRunner creates a new run orchestrator
func NewRunner(
	resolver *Resolver,
	launcher *Launcher,
	poller *Poller,
	runs interfaces.RunStorage,
	notifier interfaces.Notifier,
	events interfaces.EventService,
	pollInterval time.Duration,
	maxCycles int,
	logger arbor.ILogger,
) *Runner {
	if pollInterval <= 0 {
		pollInterval = 60 * time.Second
	}
	if maxCycles <= 0 {
		maxCycles = 1440
	}
	return &Runner{
		resolver:     resolver,
		launcher:     launcher,
		poller:       poller,
		runs:         runs,
		notifier:     notifier,
		events:       events,
		pollInterval: pollInterval,
		maxCycles:    maxCycles,
		logger:       logger,
	}
}

// Execute orchestrates one manifest. Blocks until the run finishes, the poll
// cycle budget is exhausted, or ctx is cancelled.
func (r *Runner) Execute(ctx context.Context, manifest *models.Manifest) error {
	runLogger := r.logger.WithCorrelationId(manifest.RunLabel)

	specs, err := r.resolver.Resolve(ctx, manifest)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		runLogger.Warn().Str("run_label", manifest.RunLabel).Msg("Manifest resolved to zero job specs")
		return ErrNothingRequested
	}

	record := &models.RunRecord{
		RunLabel: manifest.RunLabel,
		Phase:    models.RunPhaseLaunching,
	}
	if err := r.runs.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to persist run record: %w", err)
	}

	launched, err := r.launcher.Launch(ctx, specs)
	if err != nil {
		record.Phase = models.RunPhaseFailed
		record.Error = err.Error()
		r.finish(ctx, record)
		return err
	}

	record.Phase = models.RunPhasePolling
	record.LaunchedJobs = launched
	if err := r.runs.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to persist launched jobs: %w", err)
	}

	r.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventRunLaunched,
		Payload: map[string]interface{}{
			"run_label": manifest.RunLabel,
			"job_count": len(launched),
		},
	})

	return r.pollToCompletion(ctx, record, runLogger)
}

// pollToCompletion runs the external poll loop. The poller itself never
// waits; the interval between cycles lives here. A failed sibling does not
// stop polling: every job is tracked to its own terminal state, and no
// cancellation is ever issued against the service.
func (r *Runner) pollToCompletion(ctx context.Context, record *models.RunRecord, runLogger arbor.ILogger) error {
	for cycle := 1; ; cycle++ {
		aggregate := r.poller.Poll(ctx, record.RunLabel, record.LaunchedJobs)

		record.LastAggregate = &aggregate
		record.PollCycles = cycle
		if err := r.runs.Save(ctx, record); err != nil {
			runLogger.Warn().Err(err).Msg("Failed to persist poll progress")
		}

		r.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventRunProgress,
			Payload: aggregate,
		})

		if aggregate.AllTerminal {
			record.Phase = models.RunPhaseFinished
			r.finish(ctx, record)

			runLogger.Info().
				Int("poll_cycles", cycle).
				Bool("any_failed", aggregate.AnyFailed).
				Msg("All jobs terminal, sending run report")

			if err := r.notifier.NotifyRunCompleted(ctx, aggregate); err != nil {
				return &NotificationError{RunLabel: record.RunLabel, Cause: err}
			}
			return nil
		}

		if cycle >= r.maxCycles {
			record.Phase = models.RunPhaseFailed
			record.Error = fmt.Sprintf("poll cycle budget exhausted after %d cycles", cycle)
			r.finish(ctx, record)
			// Jobs are left running; cancellation is an operator action
			// against the service, not something this core performs.
			return fmt.Errorf("run %q did not reach terminal state within %d poll cycles", record.RunLabel, r.maxCycles)
		}

		select {
		case <-ctx.Done():
			record.Phase = models.RunPhaseFailed
			record.Error = ctx.Err().Error()
			r.finish(ctx, record)
			return fmt.Errorf("run %q cancelled: %w", record.RunLabel, ctx.Err())
		case <-time.After(r.pollInterval):
		}
	}
}

// finish stamps and saves the final run record
func (r *Runner) finish(ctx context.Context, record *models.RunRecord) {
	now := time.Now()
	record.FinishedAt = &now
	if err := r.runs.Save(ctx, record); err != nil {
		r.logger.Warn().
			Err(err).
			Str("run_label", record.RunLabel).
			Msg("Failed to persist final run record")
	}

	r.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventRunCompleted,
		Payload: map[string]interface{}{
			"run_label": record.RunLabel,
			"phase":     string(record.Phase),
		},
	})
}
