package query

import (
	"context"

	"github.com/datapeek/datapeek/internal/dataset"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Page is the shared shape for tabular responses. RowIDs line up with Rows
// when the query ran over a row-identified relation, and is empty otherwise.
type Page struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	RowIDs  []int64  `json:"row_ids"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Engine runs read queries against a single dataset file. Implementations are
// stateless across calls: every operation sees the file as it is on disk plus
// the current soft-delete marks.
type Engine interface {
	Describe(ctx context.Context, src dataset.Source) ([]Column, error)
	FetchPage(ctx context.Context, src dataset.Source, limit, offset int) (Page, error)
	Search(ctx context.Context, src dataset.Source, term string, limit, offset int) (Page, error)
	RunUserQuery(ctx context.Context, src dataset.Source, sql string, limit, offset int) (Page, error)
	CountRows(ctx context.Context, src dataset.Source) (int64, error)
	CountRowsRaw(ctx context.Context, src dataset.Source) (int64, error)
	SampleColumn(ctx context.Context, src dataset.Source, column string, limit int) ([]any, error)
	Snapshot(ctx context.Context, src dataset.Source, limit int) (Page, error)
	SampleRows(ctx context.Context, src dataset.Source, limit int) ([]Column, [][]any, error)
}
