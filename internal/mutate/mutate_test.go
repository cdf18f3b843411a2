package mutate

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/datapeek/datapeek/internal/dataset"
)

func TestDeleteRowWhenDisabled(t *testing.T) {
	mutator := NewMutator(dataset.NewSoftDeletes(), false)
	src := dataset.Source{Path: "/data/items.csv", Format: dataset.FormatCSV}

	if err := mutator.DeleteRow(context.Background(), src, 1); !errors.Is(err, ErrDisabled) {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	if err := mutator.DeleteColumn(context.Background(), src, "id"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("DeleteColumn() error = %v", err)
	}
}

func TestDeleteRowRejectsNonPositiveOrdinal(t *testing.T) {
	mutator := NewMutator(dataset.NewSoftDeletes(), true)
	src := dataset.Source{Path: "/data/items.jsonl", Format: dataset.FormatJSONL}

	if err := mutator.DeleteRow(context.Background(), src, 0); !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("DeleteRow() error = %v", err)
	}
}

func TestDeleteRowClearsSoftDeletes(t *testing.T) {
	path := writeDatasetFile(t, "items.jsonl", "{\"id\":1}\n{\"id\":2}\n")
	deletes := dataset.NewSoftDeletes()
	deletes.Mark(path, 1)
	mutator := NewMutator(deletes, true)

	src := dataset.Source{Path: path, Format: dataset.FormatJSONL}
	if err := mutator.DeleteRow(context.Background(), src, 2); err != nil {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	if count := deletes.Count(path); count != 0 {
		t.Fatalf("soft deletes = %d", count)
	}
}

func TestDeleteRowKeepsSoftDeletesOnFailure(t *testing.T) {
	path := writeDatasetFile(t, "items.jsonl", "{\"id\":1}\n")
	deletes := dataset.NewSoftDeletes()
	deletes.Mark(path, 1)
	mutator := NewMutator(deletes, true)

	src := dataset.Source{Path: path, Format: dataset.FormatJSONL}
	if err := mutator.DeleteRow(context.Background(), src, 9); !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	if count := deletes.Count(path); count != 1 {
		t.Fatalf("soft deletes = %d", count)
	}
}

func TestDeleteRowChecksOrdinalThroughSession(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	mutator := NewMutator(dataset.NewSoftDeletes(), true)
	mutator.open = func() (*sql.DB, error) { return db, nil }

	mock.ExpectExec(regexp.QuoteMeta("SET threads TO 1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM (SELECT *, row_number() OVER () AS __rowid FROM read_csv_auto('/data/items.csv')) WHERE __rowid = 9",
	)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectClose()

	src := dataset.Source{Path: "/data/items.csv", Format: dataset.FormatCSV}
	if err := mutator.DeleteRow(context.Background(), src, 9); !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteRowCleansStageWhenCopyFails(t *testing.T) {
	path := writeDatasetFile(t, "items.csv", "id\n1\n2\n")
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	mutator := NewMutator(dataset.NewSoftDeletes(), true)
	mutator.open = func() (*sql.DB, error) { return db, nil }

	mock.ExpectExec(regexp.QuoteMeta("SET threads TO 1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectExec(regexp.QuoteMeta("COPY (SELECT * EXCLUDE(__rowid)")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectClose()

	src := dataset.Source{Path: path, Format: dataset.FormatCSV}
	if err := mutator.DeleteRow(context.Background(), src, 1); err == nil {
		t.Fatalf("DeleteRow() expected error")
	}
	assertOnlyFile(t, path)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
