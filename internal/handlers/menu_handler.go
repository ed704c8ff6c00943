package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/models"
	"github.com/menufeed/menufeed/internal/services/scheduler"
)

// MenuHandler exposes the scrape trigger endpoint. The whole pipeline runs
// synchronously inside the request; the caller gets either the stored path
// with timings or a classified failure.
type MenuHandler struct {
	trigger *scheduler.Service
	logger  arbor.ILogger
}

func NewMenuHandler(trigger *scheduler.Service, logger arbor.ILogger) *MenuHandler {
	return &MenuHandler{
		trigger: trigger,
		logger:  logger,
	}
}

// TriggerHandler handles GET /api/menu - runs the full scrape pipeline.
func (h *MenuHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	result, err := h.trigger.TryRun(r.Context())
	if err != nil {
		if errors.Is(err, common.ErrRunInProgress) {
			WriteError(w, http.StatusConflict, "Menu processing already in progress")
			return
		}
		h.writeFailure(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"path":      result.Path,
		"metrics":   result.Metrics,
		"totalTime": result.TotalTime,
	})
}

// writeFailure renders a failed run. The metrics block carries whatever phase
// timings were recorded before the failure.
func (h *MenuHandler) writeFailure(w http.ResponseWriter, err error) {
	response := map[string]interface{}{
		"error":        "Failed to process menu",
		"errorDetails": err.Error(),
		"timestamp":    time.Now().Format(time.RFC3339),
	}

	var perr *models.PipelineError
	if errors.As(err, &perr) && perr.Metrics != nil {
		response["metrics"] = perr.Metrics
	}

	WriteJSON(w, http.StatusInternalServerError, response)
}
