package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/datapeek/datapeek/internal/observability"
)

type deleteRowRequest struct {
	File    string `json:"file"`
	RowID   int64  `json:"row_id"`
	Persist bool   `json:"persist"`
}

type deleteColumnRequest struct {
	File    string `json:"file"`
	Column  string `json:"column"`
	Persist bool   `json:"persist"`
}

func handleDeleteRow(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request deleteRowRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid delete row request body", false, map[string]any{"details": err.Error()})
		return
	}

	src, ok := resolveFile(deps, w, r, request.File)
	if !ok {
		return
	}
	if request.RowID < 1 {
		writeError(r.Context(), w, http.StatusBadRequest, "ROW_ID_INVALID", "row_id must be positive", false, nil)
		return
	}

	if !request.Persist {
		count := deps.Deletes.Mark(src.Path, request.RowID)
		observability.IncrementSoftDeleteMark()
		writeJSON(w, http.StatusOK, map[string]any{
			"file":          request.File,
			"row_id":        request.RowID,
			"persisted":     false,
			"deleted_count": count,
		})
		return
	}

	if !deps.AllowDelete {
		writeError(r.Context(), w, http.StatusForbidden, "PERSIST_DISABLED", "delete from file is disabled", false, nil)
		return
	}
	if deps.Mutator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MUTATION_NOT_CONFIGURED", "persisted deletion is not configured", false, nil)
		return
	}

	// Ordinals come from the raw scan, so the bound check ignores session marks.
	total, err := deps.Engine.CountRowsRaw(r.Context(), src)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", "failed to count rows", false, map[string]any{"details": err.Error()})
		return
	}
	if request.RowID > total {
		writeError(r.Context(), w, http.StatusNotFound, "ROW_NOT_FOUND", "row not found", false, nil)
		return
	}

	if err := deps.Mutator.DeleteRow(r.Context(), src, request.RowID); err != nil {
		writeMutationError(r.Context(), w, err)
		return
	}
	observability.ObserveMutation("delete_row", string(src.Format))
	observability.IncrementSoftDeleteClear()

	remaining := total - 1
	if remaining < 0 {
		remaining = 0
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file":       request.File,
		"row_id":     request.RowID,
		"persisted":  true,
		"total_rows": remaining,
	})
}

func handleDeleteColumn(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request deleteColumnRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid delete column request body", false, map[string]any{"details": err.Error()})
		return
	}

	src, ok := resolveFile(deps, w, r, request.File)
	if !ok {
		return
	}
	column := strings.TrimSpace(request.Column)
	if column == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "COLUMN_REQUIRED", "column is required", false, nil)
		return
	}

	if !request.Persist {
		// Column hiding never reaches the engine: the UI drops the column from
		// its own rendering and asks again with persist to make it stick.
		writeJSON(w, http.StatusOK, map[string]any{
			"file":      request.File,
			"column":    column,
			"persisted": false,
		})
		return
	}

	if !deps.AllowDelete {
		writeError(r.Context(), w, http.StatusForbidden, "PERSIST_DISABLED", "delete from file is disabled", false, nil)
		return
	}
	if deps.Mutator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "MUTATION_NOT_CONFIGURED", "persisted deletion is not configured", false, nil)
		return
	}

	if err := deps.Mutator.DeleteColumn(r.Context(), src, column); err != nil {
		writeMutationError(r.Context(), w, err)
		return
	}
	observability.ObserveMutation("delete_column", string(src.Format))
	observability.IncrementSoftDeleteClear()

	writeJSON(w, http.StatusOK, map[string]any{
		"file":      request.File,
		"column":    column,
		"persisted": true,
	})
}
