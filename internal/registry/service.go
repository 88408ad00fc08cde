package registry

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
)

// Service resolves job types to provisioned workflow entries. Reads only;
// writes happen through the provisioner at startup or via the registry CLI.
type Service struct {
	storage interfaces.RegistryStorage
	logger  arbor.ILogger
}

// NewService creates a read-only registry over the given storage
func NewService(storage interfaces.RegistryStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Lookup returns the workflow entry for a job type. Missing entries surface
// as interfaces.ErrWorkflowNotFound so callers can treat them as a
// configuration problem rather than a transient one.
func (s *Service) Lookup(ctx context.Context, jobType string) (*models.WorkflowEntry, error) {
	entry, err := s.storage.Get(ctx, jobType)
	if err != nil {
		return nil, fmt.Errorf("registry lookup for %q: %w", jobType, err)
	}
	return entry, nil
}
