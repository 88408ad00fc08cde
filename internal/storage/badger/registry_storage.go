package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RegistryStorage implements the RegistryStorage interface for Badger
type RegistryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRegistryStorage creates a new RegistryStorage instance
func NewRegistryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RegistryStorage {
	return &RegistryStorage{
		db:     db,
		logger: logger,
	}
}

// normalizeJobType converts a job type to lowercase for case-insensitive lookups
func (s *RegistryStorage) normalizeJobType(jobType string) string {
	return strings.ToLower(strings.TrimSpace(jobType))
}

// Get returns the registry entry for a job type (case-insensitive)
func (s *RegistryStorage) Get(ctx context.Context, jobType string) (*models.WorkflowEntry, error) {
	key := s.normalizeJobType(jobType)
	var entry models.WorkflowEntry
	err := s.db.Store().Get(key, &entry)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrWorkflowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registry entry: %w", err)
	}

	return &entry, nil
}

// Put inserts or replaces a registry entry (case-insensitive)
func (s *RegistryStorage) Put(ctx context.Context, entry *models.WorkflowEntry) error {
	key := s.normalizeJobType(entry.Name)
	stored := *entry
	stored.Name = key
	stored.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(key, &stored); err != nil {
		return fmt.Errorf("failed to put registry entry: %w", err)
	}

	s.logger.Debug().
		Str("job_type", key).
		Str("definition_ref", stored.DefinitionRef).
		Msg("Registry entry stored")

	return nil
}

// List returns all registry entries
func (s *RegistryStorage) List(ctx context.Context) ([]models.WorkflowEntry, error) {
	var entries []models.WorkflowEntry
	if err := s.db.Store().Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to list registry entries: %w", err)
	}
	return entries, nil
}

// Delete removes a registry entry (case-insensitive)
func (s *RegistryStorage) Delete(ctx context.Context, jobType string) error {
	key := s.normalizeJobType(jobType)
	err := s.db.Store().Delete(key, models.WorkflowEntry{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrWorkflowNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete registry entry: %w", err)
	}
	return nil
}
