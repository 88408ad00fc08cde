package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/strand/internal/common"
	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
)

// StatusHandler reports application status and the registered workflow set
type StatusHandler struct {
	registry  interfaces.RegistryStorage
	runs      interfaces.RunStorage
	logger    arbor.ILogger
	startedAt time.Time
}

// NewStatusHandler creates a status API handler
func NewStatusHandler(registry interfaces.RegistryStorage, runs interfaces.RunStorage, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		registry:  registry,
		runs:      runs,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// GetStatusHandler returns version, uptime and run counts by phase.
// GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	phases := map[models.RunPhase]int{}
	records, err := h.runs.List(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count runs for status")
	} else {
		for _, record := range records {
			phases[record.Phase]++
		}
	}

	workflows, err := h.registry.List(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to count workflows for status")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":   common.GetVersion(),
		"build":     common.Build,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"workflows": len(workflows),
		"runs":      phases,
	})
}

// ListWorkflowsHandler returns the registered workflow entries.
// GET /api/workflows
func (h *StatusHandler) ListWorkflowsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	entries, err := h.registry.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list workflows")
		WriteError(w, http.StatusInternalServerError, "failed to list workflows")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(entries),
		"workflows": entries,
	})
}

// HealthHandler is a liveness probe.
// GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
