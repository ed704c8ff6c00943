package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/menufeed/menufeed/internal/interfaces"
	"github.com/menufeed/menufeed/internal/models"
)

// MenuStorage implements the MenuStorage interface for Badger
type MenuStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMenuStorage creates a new MenuStorage instance
func NewMenuStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MenuStorage {
	return &MenuStorage{
		db:     db,
		logger: logger,
	}
}

func (s *MenuStorage) Insert(ctx context.Context, record *models.MenuRecord) error {
	if record.ID == "" {
		return fmt.Errorf("menu record ID is required")
	}

	if err := s.db.Store().Insert(record.ID, record); err != nil {
		return fmt.Errorf("failed to insert menu record: %w", err)
	}
	return nil
}

func (s *MenuStorage) List(ctx context.Context, limit int) ([]*models.MenuRecord, error) {
	var records []models.MenuRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list menu records: %w", err)
	}

	// Newest upload first; ties broken by insertion time
	sort.Slice(records, func(i, j int) bool {
		if records[i].UploadDate.Equal(records[j].UploadDate) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].UploadDate.After(records[j].UploadDate)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	result := make([]*models.MenuRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

func (s *MenuStorage) GetLatestByFileName(ctx context.Context, fileName string) (*models.MenuRecord, error) {
	var records []models.MenuRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("FileName").Eq(fileName)); err != nil {
		return nil, fmt.Errorf("failed to find menu record: %w", err)
	}
	if len(records) == 0 {
		return nil, interfaces.ErrRecordNotFound
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return &records[0], nil
}

func (s *MenuStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.MenuRecord{}, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count menu records: %w", err)
	}
	return int(count), nil
}
