package interfaces

import (
	"context"

	"github.com/ternarybob/decktag/internal/models"
)

// AltcacheService is the process-wide alt-text cache keyed by image
// content fingerprint. Entries are shared across jobs; concurrent
// writers follow last-writer-wins.
type AltcacheService interface {
	// Get returns the cached entry for a fingerprint, nil on miss
	Get(fingerprint string) *models.AlttextCacheEntry

	// Put stores an entry, overwriting any existing one
	Put(ctx context.Context, entry *models.AlttextCacheEntry) error

	// GetOrGenerate returns the cached entry or runs generate once,
	// caching its result. Concurrent callers for the same fingerprint
	// share a single generate call.
	GetOrGenerate(ctx context.Context, fingerprint string, generate func(ctx context.Context) (*models.AlttextCacheEntry, error)) (*models.AlttextCacheEntry, error)

	// Len returns the number of cached fingerprints
	Len() int
}
