package interfaces

import (
	"context"
	"errors"

	"github.com/menufeed/menufeed/internal/models"
)

// ErrObjectNotFound is returned when no object exists at a bucket/key.
var ErrObjectNotFound = errors.New("object not found")

// ErrRecordNotFound is returned when no menu record matches a lookup.
var ErrRecordNotFound = errors.New("menu record not found")

// MenuStorage is the append-only menu record table.
type MenuStorage interface {
	// Insert adds a new record. Records are never updated in place; repeated
	// runs on the same date append additional rows.
	Insert(ctx context.Context, record *models.MenuRecord) error

	// List returns records ordered by upload date descending, newest first.
	List(ctx context.Context, limit int) ([]*models.MenuRecord, error)

	// GetLatestByFileName returns the most recently created record for a file
	// name, or ErrRecordNotFound.
	GetLatestByFileName(ctx context.Context, fileName string) (*models.MenuRecord, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int, error)
}

// ObjectStorage is a durable blob store keyed by bucket and object key.
type ObjectStorage interface {
	// Put writes the object, overwriting any existing object at the same
	// bucket/key (upsert semantics).
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error

	// Get returns the stored object or ErrObjectNotFound.
	Get(ctx context.Context, bucket, key string) (*models.StoredObject, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error
}

// StorageManager provides access to all storage interfaces.
type StorageManager interface {
	MenuStorage() MenuStorage
	ObjectStorage() ObjectStorage
	Close() error
}
