package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/strand/internal/common"
	"github.com/ternarybob/strand/internal/interfaces"
	"github.com/ternarybob/strand/internal/models"
	"github.com/ternarybob/strand/internal/orchestrator"
)

// maxManifestBytes bounds a posted manifest document
const maxManifestBytes = 1 << 20

// RunHandler exposes run triggering and inspection over HTTP
type RunHandler struct {
	runner *orchestrator.Runner
	runs   interfaces.RunStorage
	logger arbor.ILogger
}

// NewRunHandler creates a run API handler
func NewRunHandler(runner *orchestrator.Runner, runs interfaces.RunStorage, logger arbor.ILogger) *RunHandler {
	return &RunHandler{
		runner: runner,
		runs:   runs,
		logger: logger,
	}
}

// TriggerRunHandler accepts a manifest document and starts a run for it.
// POST /api/runs
//
// The run executes in the background; the response only confirms the manifest
// was accepted. Progress is read back via GET /api/runs/{label}.
func (h *RunHandler) TriggerRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxManifestBytes))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	manifest, err := models.ManifestFromJSON(body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Rejected manifest submission")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Trigger IDs distinguish repeated submissions for the same run label;
	// there is no de-duplication on submit.
	triggerID := common.NewRunID()

	h.logger.Info().
		Str("run_label", manifest.RunLabel).
		Str("trigger_id", triggerID).
		Int("job_types", len(manifest.Samplesheets)).
		Msg("Manifest accepted via API")

	// Detached from the request context: the run outlives this HTTP exchange
	go func() {
		if err := h.runner.Execute(context.Background(), manifest); err != nil {
			h.logger.Error().
				Err(err).
				Str("run_label", manifest.RunLabel).
				Str("trigger_id", triggerID).
				Msg("Run finished with error")
		}
	}()

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":     "accepted",
		"run_label":  manifest.RunLabel,
		"trigger_id": triggerID,
	})
}

// GetRunHandler returns the persisted record for one run.
// GET /api/runs/{label}
func (h *RunHandler) GetRunHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	label := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	label = strings.Trim(label, "/")
	if label == "" {
		WriteError(w, http.StatusBadRequest, "run label required")
		return
	}

	record, err := h.runs.Get(r.Context(), label)
	if err != nil {
		if errors.Is(err, interfaces.ErrRunNotFound) {
			WriteError(w, http.StatusNotFound, "run not found: "+label)
			return
		}
		h.logger.Error().Err(err).Str("run_label", label).Msg("Failed to load run record")
		WriteError(w, http.StatusInternalServerError, "failed to load run record")
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// ListRunsHandler returns all persisted run records.
// GET /api/runs
func (h *RunHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	records, err := h.runs.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list run records")
		WriteError(w, http.StatusInternalServerError, "failed to list run records")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(records),
		"runs":  records,
	})
}
