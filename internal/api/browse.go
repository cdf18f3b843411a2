package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/datapeek/datapeek/internal/observability"
	"github.com/datapeek/datapeek/internal/query"
)

// tableResponse is the shared wire shape for row-returning endpoints. RowIDs
// line up with Rows where the read ran over the row-identified relation and is
// empty for ad-hoc SQL results.
type tableResponse struct {
	File    string   `json:"file"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	RowIDs  []int64  `json:"row_ids"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

func newTableResponse(name string, page query.Page) tableResponse {
	return tableResponse{
		File:    name,
		Columns: page.Columns,
		Rows:    page.Rows,
		RowIDs:  page.RowIDs,
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
}

func handleListFiles(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Resolver == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "DATA_NOT_CONFIGURED", "data root is not configured", false, nil)
		return
	}
	files, err := deps.Resolver.List()
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "DATASET_ERROR", "failed to list files", true, map[string]any{"details": err.Error()})
		return
	}
	observability.SetTrackedFiles(len(files))
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	src, ok := resolveFile(deps, w, r, name)
	if !ok {
		return
	}
	columns, err := deps.Engine.Describe(r.Context(), src)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", "failed to describe file", false, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file": name, "columns": columns})
}

func handlePreview(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	src, ok := resolveFile(deps, w, r, name)
	if !ok {
		return
	}
	limit, err := intQueryParam(r, "limit")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), false, nil)
		return
	}
	offset, err := intQueryParam(r, "offset")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), false, nil)
		return
	}
	limitValue, offsetValue := deps.PageLimits.Normalize(limit, offset)

	start := time.Now()
	page, err := deps.Engine.FetchPage(r.Context(), src, limitValue, offsetValue)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", "failed to read page", false, map[string]any{"details": err.Error()})
		return
	}
	observability.ObserveDatasetQuery("preview", time.Since(start))
	writeJSON(w, http.StatusOK, newTableResponse(name, page))
}

func handleCount(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	src, ok := resolveFile(deps, w, r, name)
	if !ok {
		return
	}
	raw := false
	if rawParam := strings.TrimSpace(r.URL.Query().Get("raw")); rawParam != "" {
		parsed, err := strconv.ParseBool(rawParam)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PARAMETER", "raw must be a boolean", false, nil)
			return
		}
		raw = parsed
	}

	start := time.Now()
	var (
		total int64
		err   error
	)
	if raw {
		total, err = deps.Engine.CountRowsRaw(r.Context(), src)
	} else {
		total, err = deps.Engine.CountRows(r.Context(), src)
	}
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", "failed to count rows", false, map[string]any{"details": err.Error()})
		return
	}
	observability.ObserveDatasetQuery("count", time.Since(start))
	writeJSON(w, http.StatusOK, map[string]any{"file": name, "count": total})
}

func handleSearch(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	src, ok := resolveFile(deps, w, r, name)
	if !ok {
		return
	}
	term := strings.TrimSpace(r.URL.Query().Get("query"))
	if term == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_TERM_REQUIRED", "query must not be empty", false, nil)
		return
	}
	limit, err := intQueryParam(r, "limit")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), false, nil)
		return
	}
	offset, err := intQueryParam(r, "offset")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), false, nil)
		return
	}
	limitValue, offsetValue := deps.PageLimits.Normalize(limit, offset)

	start := time.Now()
	page, err := deps.Engine.Search(r.Context(), src, term, limitValue, offsetValue)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", "failed to search file", false, map[string]any{"details": err.Error()})
		return
	}
	observability.ObserveDatasetQuery("search", time.Since(start))
	writeJSON(w, http.StatusOK, newTableResponse(name, page))
}

func handleColumnSample(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	src, ok := resolveFile(deps, w, r, name)
	if !ok {
		return
	}
	column := strings.TrimSpace(r.URL.Query().Get("column"))
	if column == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "COLUMN_REQUIRED", "column is required", false, nil)
		return
	}
	limit, err := intQueryParam(r, "limit")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), false, nil)
		return
	}
	// Samples stay small: they feed tooltips, not pages.
	limitValue := 20
	if limit != nil && *limit > 0 {
		limitValue = *limit
	}
	if limitValue > 100 {
		limitValue = 100
	}

	start := time.Now()
	values, err := deps.Engine.SampleColumn(r.Context(), src, column, limitValue)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", "failed to sample column", false, map[string]any{"details": err.Error()})
		return
	}
	observability.ObserveDatasetQuery("column_sample", time.Since(start))
	writeJSON(w, http.StatusOK, map[string]any{"file": name, "column": column, "values": values})
}

func handleColumnStats(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Stats == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "STATS_NOT_CONFIGURED", "column statistics are not configured", false, nil)
		return
	}
	name := r.URL.Query().Get("file")
	src, ok := resolveFile(deps, w, r, name)
	if !ok {
		return
	}
	sample, err := intQueryParam(r, "sample")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), false, nil)
		return
	}

	start := time.Now()
	report, err := deps.Stats.Compute(r.Context(), name, src, sample)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", "failed to compute column stats", false, map[string]any{"details": err.Error()})
		return
	}
	observability.ObserveDatasetQuery("column_stats", time.Since(start))
	writeJSON(w, http.StatusOK, report)
}
