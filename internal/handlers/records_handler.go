package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/interfaces"
	"github.com/menufeed/menufeed/internal/models"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// RecordsHandler serves stored menu records and images.
type RecordsHandler struct {
	config  *common.StorageConfig
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewRecordsHandler(config *common.StorageConfig, storage interfaces.StorageManager, logger arbor.ILogger) *RecordsHandler {
	return &RecordsHandler{
		config:  config,
		storage: storage,
		logger:  logger,
	}
}

// ListHandler handles GET /api/menus - lists menu records, newest first.
func (h *RecordsHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := GetLimitParam(r, defaultListLimit, maxListLimit)

	records, err := h.storage.MenuStorage().List(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list menu records")
		WriteError(w, http.StatusInternalServerError, "Failed to list menus")
		return
	}

	count, err := h.storage.MenuStorage().Count(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count menu records")
		WriteError(w, http.StatusInternalServerError, "Failed to list menus")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"menus": records,
		"count": len(records),
		"total": count,
	})
}

// ImageHandler handles GET /api/menus/image?date=YYYY-MM-DD - serves the
// stored menu image for a date, defaulting to today.
func (h *RecordsHandler) ImageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	fileName := models.MenuFileName(date)
	record, err := h.storage.MenuStorage().GetLatestByFileName(r.Context(), fileName)
	if err != nil {
		if errors.Is(err, interfaces.ErrRecordNotFound) {
			WriteError(w, http.StatusNotFound, "No menu stored for "+date.Format("2006-01-02"))
			return
		}
		h.logger.Error().Err(err).Str("file_name", fileName).Msg("Failed to look up menu record")
		WriteError(w, http.StatusInternalServerError, "Failed to load menu image")
		return
	}

	obj, err := h.storage.ObjectStorage().Get(r.Context(), h.config.Bucket, record.StoragePath)
	if err != nil {
		if errors.Is(err, interfaces.ErrObjectNotFound) {
			// Record without object means a partially failed historical run
			WriteError(w, http.StatusNotFound, "Menu image missing from storage")
			return
		}
		h.logger.Error().Err(err).Str("path", record.StoragePath).Msg("Failed to load menu object")
		WriteError(w, http.StatusInternalServerError, "Failed to load menu image")
		return
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Data)
}
