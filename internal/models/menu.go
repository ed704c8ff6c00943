package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// MenuFileHandle identifies the menu image on the portal's file proxy.
// Extracted once per pipeline run from the page-injected state and used
// exactly once to build the download request.
type MenuFileHandle struct {
	FileGroupID string `json:"fileGroupId" validate:"required"`
	FileID      string `json:"fileId" validate:"required"`
	AccessToken string `json:"accessToken" validate:"required"`
}

// Validate checks that all handle fields are present. An empty field means
// state extraction produced a malformed handle, not a retryable empty state.
func (h *MenuFileHandle) Validate() error {
	return validator.New().Struct(h)
}

// MenuRecord is the persistent metadata row written after a successful upload.
// Records are append-only: re-running on the same date inserts a new record
// pointing at the same (overwritten) storage object.
type MenuRecord struct {
	ID          string    `json:"id" badgerhold:"key"`
	FileName    string    `json:"file_name"`
	UploadDate  time.Time `json:"upload_date"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredObject is a blob held in the embedded object store, addressed by
// bucket and key with overwrite-on-conflict semantics.
type StoredObject struct {
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	Data        []byte    `json:"data"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProcessMetrics is the per-phase timing breakdown of a pipeline run.
// Field names match the trigger endpoint's JSON contract.
type ProcessMetrics struct {
	BrowserLaunchTime int64 `json:"browserLaunchTime"`
	LoginTime         int64 `json:"loginTime"`
	ImageDownloadTime int64 `json:"imageDownloadTime"`
	UploadTime        int64 `json:"uploadTime"`
}

// CurrentStep infers the phase a run was in from which timings have been
// recorded. Used in failure events so the caller can tell which phase failed.
func (m *ProcessMetrics) CurrentStep() string {
	switch {
	case m.BrowserLaunchTime == 0:
		return "BROWSER_LAUNCH"
	case m.LoginTime == 0:
		return "LOGIN"
	case m.ImageDownloadTime == 0:
		return "IMAGE_DOWNLOAD"
	case m.UploadTime == 0:
		return "UPLOAD"
	default:
		return "COMPLETED"
	}
}

// MenuFileName returns the deterministic object file name for a calendar date.
func MenuFileName(date time.Time) string {
	return "food_menu_" + date.Format("2006-01-02") + ".png"
}
