package mutate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"slices"

	"github.com/datapeek/datapeek/internal/dataset"
)

func (m *Mutator) deleteRelationalRow(ctx context.Context, src dataset.Source, rowID int64) error {
	db, err := m.session(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	rowed := dataset.RowIDSelect(src.LiteralRelation())
	existsSQL := fmt.Sprintf("SELECT COUNT(*) FROM (%s) WHERE %s = %d", rowed, dataset.RowIDColumn, rowID)
	var present int64
	if err := db.QueryRowContext(ctx, existsSQL).Scan(&present); err != nil {
		return fmt.Errorf("check row: %w", err)
	}
	if present == 0 {
		return ErrRowNotFound
	}

	selectSQL := fmt.Sprintf("SELECT * EXCLUDE(%s) FROM (%s) WHERE %s <> %d",
		dataset.RowIDColumn, rowed, dataset.RowIDColumn, rowID)
	return copyOut(ctx, db, src, selectSQL)
}

func (m *Mutator) deleteRelationalColumn(ctx context.Context, src dataset.Source, column string) error {
	db, err := m.session(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	names, err := columnNames(ctx, db, src)
	if err != nil {
		return err
	}
	if !slices.Contains(names, column) {
		return ErrColumnNotFound
	}
	if len(names) <= 1 {
		return ErrLastColumn
	}

	selectSQL := fmt.Sprintf("SELECT * EXCLUDE(%s) FROM %s", dataset.QuoteIdent(column), src.LiteralRelation())
	return copyOut(ctx, db, src, selectSQL)
}

// copyOut stages the rewritten relation next to the original and renames it
// over the source on success.
func copyOut(ctx context.Context, db *sql.DB, src dataset.Source, selectSQL string) error {
	tmp, err := stageFile(src.Path)
	if err != nil {
		return err
	}
	copySQL := fmt.Sprintf("COPY (%s) TO %s (%s)", selectSQL, dataset.QuoteString(tmp), copyOptions(src.Format))
	if _, err := db.ExecContext(ctx, copySQL); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("stage rewrite: %w", err)
	}
	if err := os.Rename(tmp, src.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit rewrite: %w", err)
	}
	return nil
}

func copyOptions(format dataset.Format) string {
	switch format {
	case dataset.FormatParquet:
		return "FORMAT PARQUET"
	case dataset.FormatTSV:
		return `FORMAT CSV, HEADER TRUE, DELIMITER '\t'`
	default:
		return "FORMAT CSV, HEADER TRUE"
	}
}

func columnNames(ctx context.Context, db *sql.DB, src dataset.Source) ([]string, error) {
	rel, args := src.Relation()
	rows, err := db.QueryContext(ctx, "DESCRIBE SELECT * FROM "+rel, args...)
	if err != nil {
		return nil, fmt.Errorf("describe relation: %w", err)
	}
	defer func() { _ = rows.Close() }()

	resultColumns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("describe columns: %w", err)
	}
	names := make([]string, 0)
	for rows.Next() {
		values := make([]any, len(resultColumns))
		scanTargets := make([]any, len(resultColumns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan describe row: %w", err)
		}
		if name, ok := values[0].(string); ok {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate describe rows: %w", err)
	}
	return names, nil
}

// session pins the instance to one thread so row ordinals match the ones the
// read path handed out.
func (m *Mutator) session(ctx context.Context) (*sql.DB, error) {
	db, err := m.open()
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if _, err := db.ExecContext(ctx, "SET threads TO 1"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pin scan threads: %w", err)
	}
	return db, nil
}
