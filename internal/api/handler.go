package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datapeek/datapeek/internal/config"
	"github.com/datapeek/datapeek/internal/dataset"
	"github.com/datapeek/datapeek/internal/mutate"
	"github.com/datapeek/datapeek/internal/nl2sql"
	"github.com/datapeek/datapeek/internal/observability"
	"github.com/datapeek/datapeek/internal/profile"
	"github.com/datapeek/datapeek/internal/query"
	"github.com/datapeek/datapeek/internal/stats"
)

type ReadinessCheck func(ctx context.Context) error

// RowMutator persists row and column deletions into the backing file.
type RowMutator interface {
	DeleteRow(ctx context.Context, src dataset.Source, rowID int64) error
	DeleteColumn(ctx context.Context, src dataset.Source, column string) error
}

// ProfileRunner builds (or reuses) an HTML profiling report for a file.
type ProfileRunner interface {
	Generate(ctx context.Context, name string, src dataset.Source, sample *int, mode string, force bool) (profile.Result, error)
}

// StatsComputer summarizes per-column value distributions for a file.
type StatsComputer interface {
	Compute(ctx context.Context, name string, src dataset.Source, sample *int) (stats.Report, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Resolver          *dataset.Resolver
	Deletes           *dataset.SoftDeletes
	Engine            query.Engine
	Mutator           RowMutator
	Stats             StatsComputer
	Profiler          ProfileRunner
	Translator        nl2sql.Translator
	PageLimits        query.Limits
	AllowDelete       bool
	CacheDir          string
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/config", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"allow_delete_data": deps.AllowDelete})
	})

	mux.HandleFunc("GET /v1/files", func(w http.ResponseWriter, r *http.Request) {
		handleListFiles(deps, w, r)
	})
	mux.HandleFunc("POST /v1/upload", func(w http.ResponseWriter, r *http.Request) {
		handleUpload(deps, w, r)
	})
	mux.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})
	mux.HandleFunc("GET /v1/preview", func(w http.ResponseWriter, r *http.Request) {
		handlePreview(deps, w, r)
	})
	mux.HandleFunc("GET /v1/count", func(w http.ResponseWriter, r *http.Request) {
		handleCount(deps, w, r)
	})
	mux.HandleFunc("GET /v1/search", func(w http.ResponseWriter, r *http.Request) {
		handleSearch(deps, w, r)
	})
	mux.HandleFunc("GET /v1/column-sample", func(w http.ResponseWriter, r *http.Request) {
		handleColumnSample(deps, w, r)
	})
	mux.HandleFunc("GET /v1/column-stats", func(w http.ResponseWriter, r *http.Request) {
		handleColumnStats(deps, w, r)
	})
	mux.HandleFunc("POST /v1/query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(deps, w, r)
	})
	mux.HandleFunc("POST /v1/query/translate", func(w http.ResponseWriter, r *http.Request) {
		handleTranslateQuery(deps, w, r)
	})
	mux.HandleFunc("POST /v1/rows/delete", func(w http.ResponseWriter, r *http.Request) {
		handleDeleteRow(deps, w, r)
	})
	mux.HandleFunc("POST /v1/columns/delete", func(w http.ResponseWriter, r *http.Request) {
		handleDeleteColumn(deps, w, r)
	})
	mux.HandleFunc("POST /v1/profile", func(w http.ResponseWriter, r *http.Request) {
		handleProfile(deps, w, r)
	})

	if deps.Resolver != nil {
		mux.Handle("GET /data/{path...}", http.StripPrefix("/data/", http.FileServer(http.Dir(deps.Resolver.Root()))))
	}
	if deps.CacheDir != "" {
		mux.Handle("GET /cache/{path...}", http.StripPrefix("/cache/", http.FileServer(http.Dir(deps.CacheDir))))
	}
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckDataRoot(resolver *dataset.Resolver) ReadinessCheck {
	return func(_ context.Context) error {
		if resolver == nil {
			return errors.New("data resolver is not configured")
		}
		if _, err := os.Stat(resolver.Root()); err != nil {
			return fmt.Errorf("data root unavailable: %w", err)
		}
		return nil
	}
}

func CheckCacheDir(dir string) ReadinessCheck {
	return func(_ context.Context) error {
		if dir == "" {
			return errors.New("cache directory is not configured")
		}
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("cache directory unavailable: %w", err)
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

// resolveFile vets a caller-supplied file name and writes the mapped error
// response on failure.
func resolveFile(deps Dependencies, w http.ResponseWriter, r *http.Request, name string) (dataset.Source, bool) {
	if deps.Resolver == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "DATA_NOT_CONFIGURED", "data root is not configured", false, nil)
		return dataset.Source{}, false
	}
	src, err := deps.Resolver.Resolve(name)
	if err != nil {
		writeResolveError(r.Context(), w, err)
		return dataset.Source{}, false
	}
	return src, true
}

func writeResolveError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dataset.ErrUnsupportedFormat):
		writeError(ctx, w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), false, nil)
	case errors.Is(err, dataset.ErrOutsideRoot):
		writeError(ctx, w, http.StatusBadRequest, "FILE_OUTSIDE_ROOT", err.Error(), false, nil)
	case errors.Is(err, dataset.ErrFileNotFound):
		writeError(ctx, w, http.StatusNotFound, "FILE_NOT_FOUND", err.Error(), false, nil)
	default:
		writeError(ctx, w, http.StatusInternalServerError, "DATASET_ERROR", err.Error(), true, nil)
	}
}

func writeMutationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mutate.ErrDisabled):
		writeError(ctx, w, http.StatusForbidden, "PERSIST_DISABLED", "delete from file is disabled", false, nil)
	case errors.Is(err, mutate.ErrRowNotFound):
		writeError(ctx, w, http.StatusNotFound, "ROW_NOT_FOUND", "row not found", false, nil)
	case errors.Is(err, mutate.ErrColumnNotFound):
		writeError(ctx, w, http.StatusNotFound, "COLUMN_NOT_FOUND", "column not found", false, nil)
	case errors.Is(err, mutate.ErrLastColumn):
		writeError(ctx, w, http.StatusBadRequest, "LAST_COLUMN", "cannot delete the last column", false, nil)
	case errors.Is(err, mutate.ErrInvalidFormat):
		writeError(ctx, w, http.StatusBadRequest, "INVALID_FORMAT", err.Error(), false, nil)
	case errors.Is(err, mutate.ErrInvalidShape):
		writeError(ctx, w, http.StatusBadRequest, "INVALID_SHAPE", err.Error(), false, nil)
	default:
		writeError(ctx, w, http.StatusInternalServerError, "MUTATION_FAILED", "failed to rewrite file", true, map[string]any{"details": err.Error()})
	}
}

// intQueryParam parses an optional integer query parameter, distinguishing
// absent from invalid.
func intQueryParam(r *http.Request, key string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	return &value, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
