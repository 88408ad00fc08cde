package interfaces

import (
	"context"

	"github.com/ternarybob/strand/internal/models"
)

// Notifier delivers the final run report. Invoked exactly once per run, after
// every tracked job has reached a terminal state. Delivery errors propagate
// to the caller: the report is the only externally visible signal of run
// outcome and a failure to send it must not be swallowed.
type Notifier interface {
	NotifyRunCompleted(ctx context.Context, aggregate models.RunAggregate) error
}
