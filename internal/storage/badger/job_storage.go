package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.JobStorage = (*JobStorage)(nil)

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) Save(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if err := models.ValidateStruct(job); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) Get(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) List(ctx context.Context) ([]*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) ListByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("Status").Eq(status).SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs by status: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Job{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *JobStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	var jobs []models.Job
	query := badgerhold.Where("CompletedAt").Lt(cutoff).And("CompletedAt").Ne(time.Time{})
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to find expired jobs: %w", err)
	}

	deleted := make([]string, 0, len(jobs))
	for i := range jobs {
		if !jobs[i].Status.IsTerminal() {
			continue
		}
		if err := s.db.Store().Delete(jobs[i].ID, &models.Job{}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobs[i].ID).Msg("Failed to delete expired job")
			continue
		}
		deleted = append(deleted, jobs[i].ID)
	}
	return deleted, nil
}
