package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AlttextStorage implements the AlttextStorage interface for Badger
type AlttextStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.AlttextStorage = (*AlttextStorage)(nil)

// NewAlttextStorage creates a new AlttextStorage instance
func NewAlttextStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AlttextStorage {
	return &AlttextStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AlttextStorage) Save(ctx context.Context, entry *models.AlttextCacheEntry) error {
	if entry.Fingerprint == "" {
		return fmt.Errorf("fingerprint is required")
	}

	if err := s.db.Store().Upsert(entry.Fingerprint, entry); err != nil {
		return fmt.Errorf("failed to save alt-text entry: %w", err)
	}
	return nil
}

func (s *AlttextStorage) Get(ctx context.Context, fingerprint string) (*models.AlttextCacheEntry, error) {
	var entry models.AlttextCacheEntry
	if err := s.db.Store().Get(fingerprint, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get alt-text entry: %w", err)
	}
	return &entry, nil
}

func (s *AlttextStorage) All(ctx context.Context) ([]*models.AlttextCacheEntry, error) {
	var entries []models.AlttextCacheEntry
	if err := s.db.Store().Find(&entries, badgerhold.Where("Fingerprint").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list alt-text entries: %w", err)
	}

	result := make([]*models.AlttextCacheEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}
