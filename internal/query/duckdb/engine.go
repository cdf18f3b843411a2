package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/datapeek/datapeek/internal/dataset"
	"github.com/datapeek/datapeek/internal/query"
)

// Engine executes reads against dataset files through ephemeral in-memory
// DuckDB instances: open, query, close. Nothing survives a call, so the file
// on disk plus the soft-delete registry is the entire state.
type Engine struct {
	deletes *dataset.SoftDeletes
	ser     serializer
	open    func() (*sql.DB, error)
}

func NewEngine(deletes *dataset.SoftDeletes, maxCellChars int) *Engine {
	return &Engine{
		deletes: deletes,
		ser:     serializer{maxCellChars: maxCellChars},
		open:    func() (*sql.DB, error) { return sql.Open("duckdb", "") },
	}
}

func (e *Engine) Describe(ctx context.Context, src dataset.Source) ([]query.Column, error) {
	db, err := e.session(ctx, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	return describeRelation(ctx, db, src)
}

func (e *Engine) FetchPage(ctx context.Context, src dataset.Source, limit, offset int) (query.Page, error) {
	db, err := e.session(ctx, true)
	if err != nil {
		return query.Page{}, err
	}
	defer func() { _ = db.Close() }()

	rel, args := e.rowRelation(src)
	sqlText := fmt.Sprintf("SELECT * FROM (%s) LIMIT %d OFFSET %d", rel, limit, offset)
	columns, rows, err := collect(ctx, db, sqlText, args)
	if err != nil {
		return query.Page{}, fmt.Errorf("fetch page: %w", err)
	}
	page := e.splitRowIDs(columns, rows)
	page.Limit, page.Offset = limit, offset
	return page, nil
}

func (e *Engine) Search(ctx context.Context, src dataset.Source, term string, limit, offset int) (query.Page, error) {
	db, err := e.session(ctx, true)
	if err != nil {
		return query.Page{}, err
	}
	defer func() { _ = db.Close() }()

	described, err := describeRelation(ctx, db, src)
	if err != nil {
		return query.Page{}, err
	}
	textColumns := make([]string, 0, len(described))
	names := make([]string, 0, len(described))
	for _, col := range described {
		names = append(names, col.Name)
		upper := strings.ToUpper(col.Type)
		if strings.Contains(upper, "CHAR") || strings.Contains(upper, "TEXT") {
			textColumns = append(textColumns, col.Name)
		}
	}
	if len(textColumns) == 0 {
		return query.Page{Columns: names, Rows: [][]any{}, RowIDs: []int64{}, Limit: limit, Offset: offset}, nil
	}

	rel, args := e.rowRelation(src)
	clauses := make([]string, 0, len(textColumns))
	for _, name := range textColumns {
		clauses = append(clauses, fmt.Sprintf("CAST(%s AS VARCHAR) ILIKE ?", dataset.QuoteIdent(name)))
		args = append(args, "%"+term+"%")
	}
	sqlText := fmt.Sprintf("SELECT * FROM (%s) WHERE %s LIMIT %d OFFSET %d",
		rel, strings.Join(clauses, " OR "), limit, offset)
	columns, rows, err := collect(ctx, db, sqlText, args)
	if err != nil {
		return query.Page{}, fmt.Errorf("search rows: %w", err)
	}
	page := e.splitRowIDs(columns, rows)
	page.Limit, page.Offset = limit, offset
	return page, nil
}

// RunUserQuery binds the exclusion-aware relation to a view named "data" and
// wraps the caller's statement in a bounded outer query. Validation of the
// statement itself happens before the engine is reached.
func (e *Engine) RunUserQuery(ctx context.Context, src dataset.Source, sqlText string, limit, offset int) (query.Page, error) {
	ids := e.deletes.Snapshot(src.Path)
	db, err := e.session(ctx, len(ids) > 0)
	if err != nil {
		return query.Page{}, err
	}
	defer func() { _ = db.Close() }()

	viewSQL := "SELECT * FROM " + src.LiteralRelation()
	if len(ids) > 0 {
		filtered := dataset.ExcludeRowIDs(dataset.RowIDSelect(src.LiteralRelation()), ids)
		viewSQL = fmt.Sprintf("SELECT * EXCLUDE(%s) FROM (%s)", dataset.RowIDColumn, filtered)
	}
	if _, err := db.ExecContext(ctx, "CREATE OR REPLACE VIEW data AS "+viewSQL); err != nil {
		return query.Page{}, fmt.Errorf("create data view: %w", err)
	}

	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d OFFSET %d", sqlText, limit, offset)
	columns, rows, err := collect(ctx, db, wrapped, nil)
	if err != nil {
		return query.Page{}, fmt.Errorf("execute query: %w", err)
	}
	page := e.serializePage(columns, rows)
	page.Limit, page.Offset = limit, offset
	return page, nil
}

func (e *Engine) CountRows(ctx context.Context, src dataset.Source) (int64, error) {
	ids := e.deletes.Snapshot(src.Path)
	db, err := e.session(ctx, len(ids) > 0)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	var sqlText string
	var args []any
	if len(ids) > 0 {
		rel, relArgs := e.rowRelation(src)
		sqlText = fmt.Sprintf("SELECT COUNT(*) FROM (%s)", rel)
		args = relArgs
	} else {
		rel, relArgs := src.Relation()
		sqlText = "SELECT COUNT(*) FROM " + rel
		args = relArgs
	}
	var count int64
	if err := db.QueryRowContext(ctx, sqlText, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return count, nil
}

func (e *Engine) CountRowsRaw(ctx context.Context, src dataset.Source) (int64, error) {
	db, err := e.session(ctx, false)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	rel, args := src.Relation()
	var count int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+rel, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return count, nil
}

func (e *Engine) SampleColumn(ctx context.Context, src dataset.Source, column string, limit int) ([]any, error) {
	db, err := e.session(ctx, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rel, args := src.Relation()
	ident := dataset.QuoteIdent(column)
	sqlText := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL LIMIT %d", ident, rel, ident, limit)
	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("sample column: %w", err)
	}
	defer func() { _ = rows.Close() }()

	values := make([]any, 0)
	for rows.Next() {
		var value any
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan sample value: %w", err)
		}
		values = append(values, e.ser.value(value))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sample values: %w", err)
	}
	return values, nil
}

// Snapshot returns the first rows of the exclusion-aware relation without the
// ordinal column, serialized for rendering.
func (e *Engine) Snapshot(ctx context.Context, src dataset.Source, limit int) (query.Page, error) {
	ids := e.deletes.Snapshot(src.Path)
	db, err := e.session(ctx, len(ids) > 0)
	if err != nil {
		return query.Page{}, err
	}
	defer func() { _ = db.Close() }()

	rel, args := e.rowRelation(src)
	sqlText := fmt.Sprintf("SELECT * EXCLUDE(%s) FROM (%s) LIMIT %d", dataset.RowIDColumn, rel, limit)
	columns, rows, err := collect(ctx, db, sqlText, args)
	if err != nil {
		return query.Page{}, fmt.Errorf("snapshot rows: %w", err)
	}
	// No cell cap here: downstream consumers apply their own truncation
	// policy before rendering.
	page := serializer{}.page(columns, rows)
	page.Limit = limit
	return page, nil
}

// SampleRows returns raw driver values for in-process analysis, with the
// described schema alongside.
func (e *Engine) SampleRows(ctx context.Context, src dataset.Source, limit int) ([]query.Column, [][]any, error) {
	db, err := e.session(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = db.Close() }()

	described, err := describeRelation(ctx, db, src)
	if err != nil {
		return nil, nil, err
	}
	rel, args := src.Relation()
	names, rows, err := collect(ctx, db, fmt.Sprintf("SELECT * FROM %s LIMIT %d", rel, limit), args)
	if err != nil {
		return nil, nil, fmt.Errorf("sample rows: %w", err)
	}

	byName := make(map[string]string, len(described))
	for _, col := range described {
		byName[col.Name] = col.Type
	}
	columns := make([]query.Column, 0, len(names))
	for _, name := range names {
		columns = append(columns, query.Column{Name: name, Type: byName[name]})
	}
	return columns, rows, nil
}

// session opens a fresh in-memory instance. Row-identified scans pin the
// instance to one thread so row_number() assignment follows file order;
// parallel scans would hand out ordinals in nondeterministic order.
func (e *Engine) session(ctx context.Context, rowIDs bool) (*sql.DB, error) {
	db, err := e.open()
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if rowIDs {
		if _, err := db.ExecContext(ctx, "SET threads TO 1"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pin scan threads: %w", err)
		}
	}
	return db, nil
}

func (e *Engine) rowRelation(src dataset.Source) (string, []any) {
	rel, args := src.Relation()
	sel := dataset.RowIDSelect(rel)
	if ids := e.deletes.Snapshot(src.Path); len(ids) > 0 {
		sel = dataset.ExcludeRowIDs(sel, ids)
	}
	return sel, args
}

func (e *Engine) serializePage(columns []string, rows [][]any) query.Page {
	return e.ser.page(columns, rows)
}

func (e *Engine) splitRowIDs(columns []string, rows [][]any) query.Page {
	idx := -1
	for i, name := range columns {
		if name == dataset.RowIDColumn {
			idx = i
			break
		}
	}
	if idx < 0 {
		return e.serializePage(columns, rows)
	}

	cleanedColumns := make([]string, 0, len(columns)-1)
	cleanedColumns = append(cleanedColumns, columns[:idx]...)
	cleanedColumns = append(cleanedColumns, columns[idx+1:]...)

	rowIDs := make([]int64, 0, len(rows))
	cleaned := make([][]any, 0, len(rows))
	for _, row := range rows {
		rowIDs = append(rowIDs, asInt64(row[idx]))
		rest := make([]any, 0, len(row)-1)
		rest = append(rest, row[:idx]...)
		rest = append(rest, row[idx+1:]...)
		cleaned = append(cleaned, e.ser.row(rest))
	}
	return query.Page{Columns: cleanedColumns, Rows: cleaned, RowIDs: rowIDs}
}

func describeRelation(ctx context.Context, db *sql.DB, src dataset.Source) ([]query.Column, error) {
	rel, args := src.Relation()
	rows, err := db.QueryContext(ctx, "DESCRIBE SELECT * FROM "+rel, args...)
	if err != nil {
		return nil, fmt.Errorf("describe relation: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("describe columns: %w", err)
	}
	columns := make([]query.Column, 0)
	for rows.Next() {
		values := make([]any, len(names))
		scanTargets := make([]any, len(names))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan describe row: %w", err)
		}
		name, _ := values[0].(string)
		typeName, _ := values[1].(string)
		columns = append(columns, query.Column{Name: name, Type: typeName})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate describe rows: %w", err)
	}
	return columns, nil
}

func collect(ctx context.Context, db *sql.DB, sqlText string, args []any) ([]string, [][]any, error) {
	rows, err := db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("query columns: %w", err)
	}
	collected := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		collected = append(collected, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return columns, collected, nil
}

func asInt64(value any) int64 {
	switch typed := value.(type) {
	case int64:
		return typed
	case int32:
		return int64(typed)
	case int:
		return int64(typed)
	case uint64:
		return int64(typed)
	default:
		return 0
	}
}
