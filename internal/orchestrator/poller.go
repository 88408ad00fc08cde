package orchestrator

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/strand/internal/models"
	"github.com/ternarybob/strand/internal/omics"
)

// Poller queries the current status of every launched job once and computes
// the run aggregate. It is stateless and never sleeps or retries internally:
// the wait between poll cycles belongs to the caller, which makes a single
// Poller safely re-entrant across concurrent runs.
type Poller struct {
	api    omics.RunService
	logger arbor.ILogger
}

// NewPoller creates a new poller
func NewPoller(api omics.RunService, logger arbor.ILogger) *Poller {
	return &Poller{
		api:    api,
		logger: logger,
	}
}

// Poll takes one status snapshot per launched job and aggregates them. A
// failed status query becomes an Unknown snapshot carrying the error text:
// Unknown is not terminal, so the caller keeps polling, and it counts as a
// failure signal, so a persistent query problem can never be reported as
// overall success. The next poll cycle retries the whole snapshot set.
func (p *Poller) Poll(ctx context.Context, runLabel string, launched []models.LaunchedJob) models.RunAggregate {
	snapshots := make([]models.JobStatusSnapshot, 0, len(launched))

	for _, job := range launched {
		detail, err := p.api.GetRun(ctx, job.JobID)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("run_label", runLabel).
				Str("job_type", job.JobType).
				Str("job_id", job.JobID).
				Msg("Status query failed, recording unknown state")

			snapshots = append(snapshots, models.JobStatusSnapshot{
				JobType: job.JobType,
				JobID:   job.JobID,
				State:   models.RunStateUnknown,
				Message: err.Error(),
			})
			continue
		}

		snapshots = append(snapshots, models.JobStatusSnapshot{
			JobType:   job.JobType,
			JobID:     job.JobID,
			State:     models.RunStateFromProvider(detail.Status),
			StartedAt: detail.StartTime,
			StoppedAt: detail.StopTime,
			Message:   detail.StatusMessage,
		})
	}

	aggregate := models.NewRunAggregate(runLabel, snapshots)

	p.logger.Debug().
		Str("run_label", runLabel).
		Int("jobs", len(snapshots)).
		Bool("all_terminal", aggregate.AllTerminal).
		Bool("any_failed", aggregate.AnyFailed).
		Msg("Poll cycle complete")

	return aggregate
}
