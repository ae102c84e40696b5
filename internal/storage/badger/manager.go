package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/interfaces"
)

// Manager wires the Badger-backed storage services behind the
// StorageManager interface
type Manager struct {
	db      *BadgerDB
	jobs    interfaces.JobStorage
	alttext interfaces.AlttextStorage
}

var _ interfaces.StorageManager = (*Manager)(nil)

// NewManager opens the database and creates the storage services
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:      db,
		jobs:    NewJobStorage(db, logger),
		alttext: NewAlttextStorage(db, logger),
	}, nil
}

func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.jobs
}

func (m *Manager) AlttextStorage() interfaces.AlttextStorage {
	return m.alttext
}

func (m *Manager) RunGC() error {
	return m.db.RunGC()
}

func (m *Manager) Close() error {
	return m.db.Close()
}
