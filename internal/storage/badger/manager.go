package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	menus   interfaces.MenuStorage
	objects interfaces.ObjectStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		menus:   NewMenuStorage(db, logger),
		objects: NewObjectStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// MenuStorage returns the menu record storage interface
func (m *Manager) MenuStorage() interfaces.MenuStorage {
	return m.menus
}

// ObjectStorage returns the object storage interface
func (m *Manager) ObjectStorage() interfaces.ObjectStorage {
	return m.objects
}

// Close closes the underlying database
func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing Badger storage manager")
	return m.db.Close()
}
