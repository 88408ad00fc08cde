package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/strand/internal/models"
)

// ErrWorkflowNotFound is returned when the registry has no entry for a job type
var ErrWorkflowNotFound = errors.New("workflow not found in registry")

// ErrRunNotFound is returned when no run record exists for a run label
var ErrRunNotFound = errors.New("run record not found")

// RegistryStorage persists workflow registry entries. Mutated only by the
// provisioner; read-only everywhere else.
type RegistryStorage interface {
	// Get returns the registry entry for a job type, or ErrWorkflowNotFound
	Get(ctx context.Context, jobType string) (*models.WorkflowEntry, error)

	// Put inserts or replaces a registry entry
	Put(ctx context.Context, entry *models.WorkflowEntry) error

	// List returns all registry entries
	List(ctx context.Context) ([]models.WorkflowEntry, error)

	// Delete removes a registry entry
	Delete(ctx context.Context, jobType string) error
}

// RunStorage persists run records for the scheduling substrate. The launcher
// and poller hold no state between invocations; this is where it lives.
type RunStorage interface {
	// Get returns the run record for a run label, or ErrRunNotFound
	Get(ctx context.Context, runLabel string) (*models.RunRecord, error)

	// Save inserts or replaces a run record
	Save(ctx context.Context, record *models.RunRecord) error

	// List returns all run records
	List(ctx context.Context) ([]models.RunRecord, error)
}

// Registry is the read-only lookup the resolver and launcher depend on. It is
// injected explicitly at construction time, never read from ambient process
// state at call time.
type Registry interface {
	Lookup(ctx context.Context, jobType string) (*models.WorkflowEntry, error)
}
