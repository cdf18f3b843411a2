package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// RowIDColumn is the synthetic ordinal attached by RowIDSelect. Ordinals are
// 1-based and only stable while the underlying file is unchanged and the scan
// runs single-threaded.
const RowIDColumn = "__rowid"

type Source struct {
	Path   string
	Format Format
}

func NewSource(path string) (Source, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return Source{}, err
	}
	return Source{Path: path, Format: format}, nil
}

// Relation returns the DuckDB scan expression for the file with the path as a
// bound parameter.
func (s Source) Relation() (string, []any) {
	return s.scanTemplate(), []any{s.Path}
}

// LiteralRelation inlines the quoted path for statements that cannot carry
// bound parameters (CREATE VIEW, COPY ... TO).
func (s Source) LiteralRelation() string {
	return strings.Replace(s.scanTemplate(), "?", QuoteString(s.Path), 1)
}

func (s Source) scanTemplate() string {
	switch s.Format {
	case FormatParquet:
		return "read_parquet(?)"
	case FormatTSV:
		return "read_csv_auto(?, delim='\t')"
	case FormatCSV:
		return "read_csv_auto(?)"
	default:
		return "read_json_auto(?)"
	}
}

// RowIDSelect wraps a relation so every row carries its scan ordinal.
func RowIDSelect(relation string) string {
	return fmt.Sprintf("SELECT *, row_number() OVER () AS %s FROM %s", RowIDColumn, relation)
}

// ExcludeRowIDs filters marked ordinals out of a row-identified selection.
// IDs are inlined as integer literals, so the result stays a single statement
// with the original bind parameters.
func ExcludeRowIDs(rowIDSelect string, rowIDs []int64) string {
	list := formatRowIDs(rowIDs)
	if list == "" {
		return rowIDSelect
	}
	return fmt.Sprintf("SELECT * FROM (%s) WHERE %s NOT IN (%s)", rowIDSelect, RowIDColumn, list)
}

func formatRowIDs(rowIDs []int64) string {
	parts := make([]string, 0, len(rowIDs))
	for _, id := range rowIDs {
		if id > 0 {
			parts = append(parts, strconv.FormatInt(id, 10))
		}
	}
	return strings.Join(parts, ", ")
}

func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
