package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/datapeek/datapeek/internal/nl2sql"
	"github.com/datapeek/datapeek/internal/observability"
	"github.com/datapeek/datapeek/internal/query"
)

type queryRequest struct {
	File   string `json:"file"`
	SQL    string `json:"sql"`
	Limit  *int   `json:"limit"`
	Offset *int   `json:"offset"`
}

type translateRequest struct {
	File   string         `json:"file"`
	Prompt string         `json:"prompt"`
	Sample map[string]any `json:"sample"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}

	src, ok := resolveFile(deps, w, r, request.File)
	if !ok {
		return
	}

	cleaned, err := query.ValidateUserSQL(request.SQL)
	if err != nil {
		writeSQLValidationError(r, w, err)
		return
	}
	limitValue, offsetValue := deps.PageLimits.Normalize(request.Limit, request.Offset)

	start := time.Now()
	page, err := deps.Engine.RunUserQuery(r.Context(), src, cleaned, limitValue, offsetValue)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", "query execution failed", false, map[string]any{"details": err.Error()})
		return
	}
	observability.ObserveDatasetQuery("sql", time.Since(start))
	writeJSON(w, http.StatusOK, newTableResponse(request.File, page))
}

func handleTranslateQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Translator == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "TRANSLATE_DISABLED", "natural-language translation is not configured", false, nil)
		return
	}

	var request translateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid translation request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Prompt) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "PROMPT_REQUIRED", "prompt must not be empty", false, nil)
		return
	}

	src, ok := resolveFile(deps, w, r, request.File)
	if !ok {
		return
	}

	columns, err := deps.Engine.Describe(r.Context(), src)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_FAILED", "failed to describe file", false, map[string]any{"details": err.Error()})
		return
	}

	result, err := deps.Translator.Translate(r.Context(), nl2sql.Request{
		Prompt:  strings.TrimSpace(request.Prompt),
		Columns: columns,
		Sample:  request.Sample,
	})
	if err != nil {
		observability.ObserveTranslate(false)
		writeError(r.Context(), w, http.StatusBadGateway, "TRANSLATE_FAILED", "failed to translate prompt", true, map[string]any{"details": err.Error()})
		return
	}

	// The model output goes through the same allow-list as hand-written SQL
	// before it reaches the client.
	cleaned, err := query.ValidateUserSQL(result.SQL)
	if err != nil {
		observability.ObserveTranslate(false)
		writeError(r.Context(), w, http.StatusBadGateway, "TRANSLATE_INVALID_SQL", "translated sql is not a read-only query", false, map[string]any{"sql": result.SQL})
		return
	}
	observability.ObserveTranslate(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"file":     request.File,
		"sql":      cleaned,
		"provider": result.Provider,
		"model":    result.Model,
	})
}

func writeSQLValidationError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, query.ErrSQLRequired):
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql must not be empty", false, nil)
	case errors.Is(err, query.ErrSQLMultiStatement):
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_MULTI_STATEMENT", "multi-statement sql is not allowed", false, nil)
	default:
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", "only SELECT or WITH queries are allowed", false, nil)
	}
}
