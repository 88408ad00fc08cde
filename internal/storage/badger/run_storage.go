package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RunStorage implements the RunStorage interface for Badger. Run records are
// the only cross-invocation state the orchestration core depends on.
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

// Get returns the run record for a run label
func (s *RunStorage) Get(ctx context.Context, runLabel string) (*models.RunRecord, error) {
	var record models.RunRecord
	err := s.db.Store().Get(runLabel, &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run record: %w", err)
	}
	return &record, nil
}

// Save inserts or replaces a run record
func (s *RunStorage) Save(ctx context.Context, record *models.RunRecord) error {
	record.UpdatedAt = time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.UpdatedAt
	}

	if err := s.db.Store().Upsert(record.RunLabel, record); err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	s.logger.Debug().
		Str("run_label", record.RunLabel).
		Str("phase", string(record.Phase)).
		Int("launched_jobs", len(record.LaunchedJobs)).
		Msg("Run record saved")

	return nil
}

// List returns all run records
func (s *RunStorage) List(ctx context.Context) ([]models.RunRecord, error) {
	var records []models.RunRecord
	if err := s.db.Store().Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list run records: %w", err)
	}
	return records, nil
}
