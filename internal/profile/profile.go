// Package profile builds exploratory HTML reports from a bounded sample of a
// dataset and caches them on disk. Reports are keyed by file identity plus
// generation options, so an unchanged file never pays for a rebuild.
package profile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/datapeek/datapeek/internal/dataset"
	"github.com/datapeek/datapeek/internal/query"
)

var ErrEmptyDataset = errors.New("dataset is empty")

// Snapshotter loads the exclusion-aware relation for report generation.
type Snapshotter interface {
	CountRows(ctx context.Context, src dataset.Source) (int64, error)
	Snapshot(ctx context.Context, src dataset.Source, limit int) (query.Page, error)
}

type Options struct {
	CacheDir     string
	DefaultRows  int
	MaxRows      int
	MaxCellChars int
	NestedPolicy string
	DefaultMode  string
}

type Result struct {
	File   string `json:"file"`
	URL    string `json:"url"`
	Cached bool   `json:"cached"`
	Sample int    `json:"sample"`
	Mode   string `json:"mode"`
}

type Generator struct {
	snap Snapshotter
	opts Options
}

func NewGenerator(snap Snapshotter, opts Options) *Generator {
	return &Generator{snap: snap, opts: opts}
}

// Generate renders (or reuses) the report for a dataset file and returns the
// cache-relative URL it is served under.
func (g *Generator) Generate(ctx context.Context, name string, src dataset.Source, sample *int, mode string, force bool) (Result, error) {
	requested := g.opts.DefaultRows
	if sample != nil && *sample != 0 {
		requested = *sample
	}
	if requested > g.opts.MaxRows {
		requested = g.opts.MaxRows
	}
	if requested < 1 {
		requested = 1
	}

	total, err := g.snap.CountRows(ctx, src)
	if err != nil {
		return Result{}, fmt.Errorf("count %s: %w", name, err)
	}
	if total <= 0 {
		return Result{}, ErrEmptyDataset
	}

	rows := requested
	if int64(requested) >= total {
		rows = int(total)
	} else {
		if rows < 100 {
			rows = 100
		}
		if int64(rows) > total {
			rows = int(total)
		}
	}

	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(g.opts.DefaultMode))
	}
	if mode == "" {
		mode = "minimal"
	}

	cacheFile, err := g.cacheFileName(src.Path, rows, mode)
	if err != nil {
		return Result{}, err
	}
	cachePath := filepath.Join(g.opts.CacheDir, cacheFile)
	result := Result{File: name, URL: "/cache/" + cacheFile, Sample: rows, Mode: mode}

	if !force {
		if _, err := os.Stat(cachePath); err == nil {
			result.Cached = true
			return result, nil
		}
	}

	page, err := g.snap.Snapshot(ctx, src, rows)
	if err != nil {
		return Result{}, fmt.Errorf("load %s: %w", name, err)
	}
	page = g.sanitize(page)
	if len(page.Rows) == 0 {
		return Result{}, ErrEmptyDataset
	}

	report, err := renderReport("EDA Report: "+filepath.Base(src.Path), name, mode, page, mode != "maximal")
	if err != nil {
		return Result{}, fmt.Errorf("render report: %w", err)
	}
	if err := os.MkdirAll(g.opts.CacheDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(cachePath, report, 0o644); err != nil {
		return Result{}, fmt.Errorf("write report: %w", err)
	}
	return result, nil
}

// cacheFileName derives the report name from file identity (path, size,
// mtime) and the generation options. Any change to the file invalidates the
// cached report by construction.
func (g *Generator) cacheFileName(path string, sample int, mode string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat dataset: %w", err)
	}
	payload := fmt.Sprintf("%s|%d|%d|%d|%s", path, info.Size(), info.ModTime().UnixNano(), sample, mode)
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%s-%s-%s.html", safeStem(path), mode, hex.EncodeToString(sum[:6])), nil
}

// sanitize flattens values the report renderer cannot chart. Columns holding
// lists or structs are either stringified or dropped, per the configured
// policy.
func (g *Generator) sanitize(page query.Page) query.Page {
	nested := make([]bool, len(page.Columns))
	for _, row := range page.Rows {
		for i, value := range row {
			if i >= len(nested) {
				break
			}
			switch value.(type) {
			case []any, map[string]any:
				nested[i] = true
			}
		}
	}

	if g.opts.NestedPolicy == "drop" {
		columns := make([]string, 0, len(page.Columns))
		for i, name := range page.Columns {
			if !nested[i] {
				columns = append(columns, name)
			}
		}
		rows := make([][]any, len(page.Rows))
		for r, row := range page.Rows {
			kept := make([]any, 0, len(columns))
			for i, value := range row {
				if i < len(nested) && !nested[i] {
					kept = append(kept, value)
				}
			}
			rows[r] = kept
		}
		page.Columns = columns
		page.Rows = rows
		return page
	}

	for _, row := range page.Rows {
		for i := range row {
			if i < len(nested) && nested[i] {
				row[i] = g.stringifyCell(row[i])
			}
		}
	}
	return page
}

func (g *Generator) stringifyCell(value any) any {
	if value == nil {
		return nil
	}
	var text string
	switch typed := value.(type) {
	case string:
		text = typed
	case []any, map[string]any:
		encoded, err := json.Marshal(typed)
		if err != nil {
			text = fmt.Sprint(typed)
		} else {
			text = string(encoded)
		}
	default:
		text = fmt.Sprint(typed)
	}
	if max := g.opts.MaxCellChars; max > 0 {
		runes := []rune(text)
		if len(runes) > max {
			text = string(runes[:max]) + "... (truncated)"
		}
	}
	return text
}

func safeStem(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if stem == "" {
		return "data"
	}
	var b strings.Builder
	for _, r := range stem {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
