package altcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
)

// Fingerprint returns the sha256 hex digest of image content, the cache key
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Service is the process-wide alt-text cache. The in-memory map is the
// fast path; entries are written through to Badger so the cache survives
// restarts. Concurrent writers to the same fingerprint follow
// last-writer-wins.
type Service struct {
	mu      sync.RWMutex
	entries map[string]*models.AlttextCacheEntry

	// inflight tracks fingerprints with a generate call in progress so
	// concurrent misses share one vision call
	inflightMu sync.Mutex
	inflight   map[string]chan struct{}

	storage interfaces.AlttextStorage
	logger  arbor.ILogger
}

var _ interfaces.AltcacheService = (*Service)(nil)

// NewService creates the cache, warming it from persisted entries.
// storage may be nil for a purely in-memory cache.
func NewService(storage interfaces.AlttextStorage, logger arbor.ILogger) *Service {
	s := &Service{
		entries:  make(map[string]*models.AlttextCacheEntry),
		inflight: make(map[string]chan struct{}),
		storage:  storage,
		logger:   logger,
	}

	if storage != nil {
		persisted, err := storage.All(context.Background())
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to warm alt-text cache from storage")
		} else {
			for _, entry := range persisted {
				s.entries[entry.Fingerprint] = entry
			}
			if len(persisted) > 0 {
				logger.Info().Int("entries", len(persisted)).Msg("Alt-text cache warmed from storage")
			}
		}
	}

	return s
}

// Get returns the cached entry for a fingerprint, nil on miss
func (s *Service) Get(fingerprint string) *models.AlttextCacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[fingerprint]
}

// Put stores an entry, overwriting any existing one, and writes through
// to persistent storage.
func (s *Service) Put(ctx context.Context, entry *models.AlttextCacheEntry) error {
	s.mu.Lock()
	s.entries[entry.Fingerprint] = entry
	s.mu.Unlock()

	if s.storage != nil {
		if err := s.storage.Save(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("fingerprint", entry.Fingerprint).Msg("Failed to persist alt-text entry")
			return err
		}
	}
	return nil
}

// GetOrGenerate returns the cached entry or runs generate once, caching
// its result. Concurrent callers for the same fingerprint wait for the
// single in-flight call instead of issuing their own.
func (s *Service) GetOrGenerate(ctx context.Context, fingerprint string, generate func(ctx context.Context) (*models.AlttextCacheEntry, error)) (*models.AlttextCacheEntry, error) {
	for {
		if entry := s.Get(fingerprint); entry != nil {
			return entry, nil
		}

		s.inflightMu.Lock()
		if done, ok := s.inflight[fingerprint]; ok {
			s.inflightMu.Unlock()
			select {
			case <-done:
				// Re-check the cache; the winner may have failed, in
				// which case we take over the generate call
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		done := make(chan struct{})
		s.inflight[fingerprint] = done
		s.inflightMu.Unlock()

		entry, err := generate(ctx)

		// Cache the result before waking waiters so they hit the
		// cache instead of regenerating.
		if err == nil {
			if putErr := s.Put(ctx, entry); putErr != nil {
				s.logger.Warn().Err(putErr).Str("fingerprint", fingerprint).Msg("Generated alt text not persisted")
			}
		}

		s.inflightMu.Lock()
		delete(s.inflight, fingerprint)
		close(done)
		s.inflightMu.Unlock()

		if err != nil {
			return nil, err
		}
		return entry, nil
	}
}

// Len returns the number of cached fingerprints
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
