package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/menufeed/menufeed/internal/interfaces"
	"github.com/menufeed/menufeed/internal/models"
)

// ObjectStorage implements the ObjectStorage interface for Badger. Objects
// are stored whole; menu images are small enough that chunking is not worth
// the complexity.
type ObjectStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewObjectStorage creates a new ObjectStorage instance
func NewObjectStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ObjectStorage {
	return &ObjectStorage{
		db:     db,
		logger: logger,
	}
}

// objectKey builds the store key. Bucket and key are joined with a separator
// badger keys cannot otherwise contain at the bucket position.
func objectKey(bucket, key string) string {
	return bucket + "::" + key
}

func (s *ObjectStorage) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if bucket == "" || key == "" {
		return fmt.Errorf("bucket and key are required")
	}

	obj := &models.StoredObject{
		Bucket:      bucket,
		Key:         key,
		Data:        data,
		ContentType: contentType,
		Size:        len(data),
		UpdatedAt:   time.Now(),
	}

	if err := s.db.Store().Upsert(objectKey(bucket, key), obj); err != nil {
		return fmt.Errorf("failed to store object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *ObjectStorage) Get(ctx context.Context, bucket, key string) (*models.StoredObject, error) {
	var obj models.StoredObject
	if err := s.db.Store().Get(objectKey(bucket, key), &obj); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}
	return &obj, nil
}

func (s *ObjectStorage) Delete(ctx context.Context, bucket, key string) error {
	if err := s.db.Store().Delete(objectKey(bucket, key), &models.StoredObject{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete object %s/%s: %w", bucket, key, err)
	}
	return nil
}
