package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
)

// DefaultRequestTimeout bounds a single webhook delivery attempt
const DefaultRequestTimeout = 15 * time.Second

// Notifier renders a completed run into a human-readable report and delivers
// it. Delivery is one-shot: a failed webhook post is the caller's problem to
// surface, not something retried here.
type Notifier struct {
	events     interfaces.EventService
	webhookURL string
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewNotifier creates a notifier. webhookURL may be empty, in which case the
// report is only published on the event bus.
func NewNotifier(events interfaces.EventService, webhookURL string, timeout time.Duration, logger arbor.ILogger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Notifier{
		events:     events,
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// NotifyRunCompleted renders and delivers the final run report
func (n *Notifier) NotifyRunCompleted(ctx context.Context, aggregate models.RunAggregate) error {
	subject := Subject(aggregate)
	body := Body(aggregate)

	n.logger.Info().
		Str("run_label", aggregate.RunLabel).
		Str("subject", subject).
		Msg("Publishing run completion report")

	n.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventNotifySent,
		Payload: map[string]interface{}{
			"run_label": aggregate.RunLabel,
			"subject":   subject,
			"body":      body,
		},
	})

	if n.webhookURL == "" {
		return nil
	}

	payload := fmt.Sprintf("%s\n\n%s", subject, body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBufferString(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.Info().
		Str("run_label", aggregate.RunLabel).
		Int("status", resp.StatusCode).
		Msg("Webhook delivered")
	return nil
}

// Subject is the one-line heading for a run report
func Subject(aggregate models.RunAggregate) string {
	verdict := "SUCCEEDED"
	if aggregate.AnyFailed {
		verdict = "FAILED"
	}
	return fmt.Sprintf("[%s] %s", strings.ToUpper(aggregate.RunLabel), verdict)
}

// Body renders one line per job, sorted by job type for stable output
func Body(aggregate models.RunAggregate) string {
	snapshots := make([]models.JobStatusSnapshot, len(aggregate.JobStatuses))
	copy(snapshots, aggregate.JobStatuses)
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].JobType != snapshots[j].JobType {
			return snapshots[i].JobType < snapshots[j].JobType
		}
		return snapshots[i].JobID < snapshots[j].JobID
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s finished with %d job(s):\n", aggregate.RunLabel, len(snapshots))
	for _, snap := range snapshots {
		fmt.Fprintf(&b, "  %-14s %-10s %s", snap.JobType, strings.ToUpper(string(snap.State)), snap.JobID)
		if snap.StartedAt != nil {
			fmt.Fprintf(&b, " started=%s", snap.StartedAt.UTC().Format(time.RFC3339))
		}
		if snap.StoppedAt != nil {
			fmt.Fprintf(&b, " stopped=%s", snap.StoppedAt.UTC().Format(time.RFC3339))
		}
		if snap.Message != "" {
			fmt.Fprintf(&b, " (%s)", snap.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}
