// Package mutate rewrites dataset files in place. Every rewrite is staged to
// a sibling temp file and committed with a rename, so readers either see the
// old file or the new one.
package mutate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/datapeek/datapeek/internal/dataset"
)

var (
	ErrDisabled       = errors.New("persisted mutation is disabled")
	ErrRowNotFound    = errors.New("row not found")
	ErrColumnNotFound = errors.New("column not found")
	ErrLastColumn     = errors.New("cannot delete the last column")
	ErrInvalidFormat  = errors.New("file content does not match its format")
	ErrInvalidShape   = errors.New("document shape does not support this operation")
)

// Mutator applies persisted row and column deletions. Relational formats are
// rewritten through DuckDB COPY, document formats in process. A successful
// rewrite shifts row ordinals, so the soft-delete registry entry for the file
// is cleared afterwards.
type Mutator struct {
	deletes *dataset.SoftDeletes
	allowed bool
	open    func() (*sql.DB, error)
}

func NewMutator(deletes *dataset.SoftDeletes, allowed bool) *Mutator {
	return &Mutator{
		deletes: deletes,
		allowed: allowed,
		open:    func() (*sql.DB, error) { return sql.Open("duckdb", "") },
	}
}

// DeleteRow removes the row with the given 1-based ordinal from the file.
func (m *Mutator) DeleteRow(ctx context.Context, src dataset.Source, rowID int64) error {
	if !m.allowed {
		return ErrDisabled
	}
	if rowID < 1 {
		return ErrRowNotFound
	}

	var err error
	switch src.Format {
	case dataset.FormatJSONL:
		err = deleteJSONLRow(src.Path, rowID)
	case dataset.FormatJSON:
		err = deleteDocumentRow(src.Path, rowID)
	default:
		err = m.deleteRelationalRow(ctx, src, rowID)
	}
	if err != nil {
		return err
	}
	m.deletes.Clear(src.Path)
	return nil
}

// DeleteColumn removes the named column from every row of the file.
func (m *Mutator) DeleteColumn(ctx context.Context, src dataset.Source, column string) error {
	if !m.allowed {
		return ErrDisabled
	}

	var err error
	switch src.Format {
	case dataset.FormatJSONL:
		err = deleteJSONLColumn(src.Path, column)
	case dataset.FormatJSON:
		err = deleteDocumentColumn(src.Path, column)
	default:
		err = m.deleteRelationalColumn(ctx, src, column)
	}
	if err != nil {
		return err
	}
	m.deletes.Clear(src.Path)
	return nil
}

func stageFile(path string) (string, error) {
	file, err := os.CreateTemp(filepath.Dir(path), ".stage-*"+filepath.Ext(path))
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	name := file.Name()
	if err := file.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close staging file: %w", err)
	}
	return name, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := stageFile(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write staging file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit rewrite: %w", err)
	}
	return nil
}
