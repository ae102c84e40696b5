package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/decktag/internal/models"
)

// JobStorage persists conversion jobs
type JobStorage interface {
	// Save upserts a job by ID
	Save(ctx context.Context, job *models.Job) error

	// Get returns a job by ID, models.ErrJobNotFound when absent
	Get(ctx context.Context, id string) (*models.Job, error)

	// List returns all jobs sorted newest first
	List(ctx context.Context) ([]*models.Job, error)

	// ListByStatus returns jobs in the given status
	ListByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error)

	// Delete removes a job by ID
	Delete(ctx context.Context, id string) error

	// DeleteOlderThan removes terminal jobs whose completion predates the
	// cutoff and returns the IDs removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

// AlttextStorage persists alt-text cache entries across restarts
type AlttextStorage interface {
	// Save upserts an entry by fingerprint
	Save(ctx context.Context, entry *models.AlttextCacheEntry) error

	// Get returns the entry for a fingerprint, nil when absent
	Get(ctx context.Context, fingerprint string) (*models.AlttextCacheEntry, error)

	// All returns every persisted entry, used to warm the in-memory cache
	All(ctx context.Context) ([]*models.AlttextCacheEntry, error)
}

// StorageManager provides access to all storage services
type StorageManager interface {
	JobStorage() JobStorage
	AlttextStorage() AlttextStorage

	// RunGC triggers a value log garbage collection cycle
	RunGC() error

	// Close closes the underlying database
	Close() error
}
