// -----------------------------------------------------------------------
// Ingestion Sink - object upsert plus record append
// -----------------------------------------------------------------------

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/interfaces"
	"github.com/menufeed/menufeed/internal/models"
)

const menuContentType = "image/png"

// Sink persists a downloaded menu image: the object store gets an upsert
// keyed by date, the record table gets an append. The two writes are not
// transactional; a record insert failure after a successful upsert leaves the
// object in place and fails the run.
type Sink struct {
	config  *common.StorageConfig
	objects interfaces.ObjectStorage
	records interfaces.MenuStorage
	logger  arbor.ILogger
}

// NewSink creates an ingestion sink over the given stores.
func NewSink(config *common.StorageConfig, storage interfaces.StorageManager, logger arbor.ILogger) *Sink {
	return &Sink{
		config:  config,
		objects: storage.ObjectStorage(),
		records: storage.MenuStorage(),
		logger:  logger,
	}
}

// Store writes the image and appends a record for it. The returned path is
// the object key within the bucket. Re-running on the same date overwrites
// the object and appends another record.
func (s *Sink) Store(ctx context.Context, data []byte, now time.Time) (string, error) {
	fileName := models.MenuFileName(now)
	objectKey := s.config.ObjectPrefix + "/" + fileName

	if err := s.objects.Put(ctx, s.config.Bucket, objectKey, data, menuContentType); err != nil {
		return "", models.NewPipelineError(models.FailureUpload,
			fmt.Errorf("failed to store %s: %w", objectKey, err))
	}

	record := &models.MenuRecord{
		ID:          uuid.NewString(),
		FileName:    fileName,
		UploadDate:  now,
		StoragePath: objectKey,
		CreatedAt:   time.Now(),
	}
	if err := s.records.Insert(ctx, record); err != nil {
		// The uploaded object is left in place; the run still fails.
		return "", models.NewPipelineError(models.FailureRecordInsert,
			fmt.Errorf("failed to record %s: %w", fileName, err))
	}

	s.logger.Info().
		Str("file_name", fileName).
		Str("path", objectKey).
		Int("bytes", len(data)).
		Msg("Menu image stored")

	return objectKey, nil
}
