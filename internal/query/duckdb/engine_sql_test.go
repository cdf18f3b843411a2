package duckdb

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/datapeek/datapeek/internal/dataset"
)

func newEngineMock(t *testing.T, deletes *dataset.SoftDeletes) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	engine := NewEngine(deletes, 0)
	engine.open = func() (*sql.DB, error) { return db, nil }
	return engine, mock
}

func assertEngineMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFetchPagePinsScanThreads(t *testing.T) {
	engine, mock := newEngineMock(t, dataset.NewSoftDeletes())
	mock.ExpectExec(regexp.QuoteMeta("SET threads TO 1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM (SELECT *, row_number() OVER () AS __rowid FROM read_csv_auto(?)) LIMIT 2 OFFSET 0",
	)).WithArgs("/data/items.csv").WillReturnRows(
		sqlmock.NewRows([]string{"id", "label", "__rowid"}).
			AddRow(int64(1), "alpha", int64(1)).
			AddRow(int64(2), "beta", int64(2)),
	)
	mock.ExpectClose()

	src := dataset.Source{Path: "/data/items.csv", Format: dataset.FormatCSV}
	page, err := engine.FetchPage(context.Background(), src, 2, 0)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if len(page.Rows) != 2 || page.RowIDs[1] != 2 {
		t.Fatalf("page = %#v", page)
	}
	assertEngineMock(t, mock)
}

func TestCountRowsInlinesExclusions(t *testing.T) {
	deletes := dataset.NewSoftDeletes()
	deletes.Mark("/data/items.csv", 2)
	deletes.Mark("/data/items.csv", 5)
	engine, mock := newEngineMock(t, deletes)
	mock.ExpectExec(regexp.QuoteMeta("SET threads TO 1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM (SELECT * FROM (SELECT *, row_number() OVER () AS __rowid FROM read_csv_auto(?)) WHERE __rowid NOT IN (2, 5))",
	)).WithArgs("/data/items.csv").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(41)))
	mock.ExpectClose()

	src := dataset.Source{Path: "/data/items.csv", Format: dataset.FormatCSV}
	count, err := engine.CountRows(context.Background(), src)
	if err != nil {
		t.Fatalf("CountRows() error = %v", err)
	}
	if count != 41 {
		t.Fatalf("count = %d", count)
	}
	assertEngineMock(t, mock)
}

func TestCountRowsRawSkipsThreadPinning(t *testing.T) {
	engine, mock := newEngineMock(t, dataset.NewSoftDeletes())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM read_parquet(?)")).
		WithArgs("/data/items.parquet").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectClose()

	src := dataset.Source{Path: "/data/items.parquet", Format: dataset.FormatParquet}
	count, err := engine.CountRowsRaw(context.Background(), src)
	if err != nil {
		t.Fatalf("CountRowsRaw() error = %v", err)
	}
	if count != 7 {
		t.Fatalf("count = %d", count)
	}
	assertEngineMock(t, mock)
}

func TestRunUserQueryCreatesFilteredView(t *testing.T) {
	deletes := dataset.NewSoftDeletes()
	deletes.Mark("/data/items.csv", 3)
	engine, mock := newEngineMock(t, deletes)
	mock.ExpectExec(regexp.QuoteMeta("SET threads TO 1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(
		"CREATE OR REPLACE VIEW data AS SELECT * EXCLUDE(__rowid) FROM (SELECT * FROM (SELECT *, row_number() OVER () AS __rowid FROM read_csv_auto('/data/items.csv')) WHERE __rowid NOT IN (3))",
	)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM (SELECT label FROM data) AS q LIMIT 100 OFFSET 0",
	)).WillReturnRows(sqlmock.NewRows([]string{"label"}).AddRow("alpha"))
	mock.ExpectClose()

	src := dataset.Source{Path: "/data/items.csv", Format: dataset.FormatCSV}
	page, err := engine.RunUserQuery(context.Background(), src, "SELECT label FROM data", 100, 0)
	if err != nil {
		t.Fatalf("RunUserQuery() error = %v", err)
	}
	if len(page.Rows) != 1 || page.Rows[0][0] != "alpha" {
		t.Fatalf("page = %#v", page)
	}
	assertEngineMock(t, mock)
}
