package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/datapeek/datapeek/internal/observability"
	"github.com/datapeek/datapeek/internal/profile"
)

type profileRequest struct {
	File   string `json:"file"`
	Sample *int   `json:"sample"`
	Force  bool   `json:"force"`
	Mode   string `json:"mode"`
}

func handleProfile(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Profiler == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PROFILE_NOT_CONFIGURED", "profiling is not configured", false, nil)
		return
	}

	var request profileRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid profile request body", false, map[string]any{"details": err.Error()})
		return
	}

	src, ok := resolveFile(deps, w, r, request.File)
	if !ok {
		return
	}

	start := time.Now()
	result, err := deps.Profiler.Generate(r.Context(), request.File, src, request.Sample, request.Mode, request.Force)
	if err != nil {
		if errors.Is(err, profile.ErrEmptyDataset) {
			writeError(r.Context(), w, http.StatusBadRequest, "EMPTY_DATASET", "dataset is empty", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "PROFILE_FAILED", "report generation failed", true, map[string]any{"details": err.Error()})
		return
	}
	observability.ObserveProfileReport(result.Cached, time.Since(start))
	writeJSON(w, http.StatusOK, result)
}
