package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/datapeek/datapeek/internal/dataset"
	"github.com/datapeek/datapeek/internal/mutate"
)

type fakeMutator struct {
	rowErr    error
	columnErr error
	rows      []int64
	columns   []string
}

func (f *fakeMutator) DeleteRow(_ context.Context, _ dataset.Source, rowID int64) error {
	if f.rowErr != nil {
		return f.rowErr
	}
	f.rows = append(f.rows, rowID)
	return nil
}

func (f *fakeMutator) DeleteColumn(_ context.Context, _ dataset.Source, column string) error {
	if f.columnErr != nil {
		return f.columnErr
	}
	f.columns = append(f.columns, column)
	return nil
}

func TestDeleteRowMarksSession(t *testing.T) {
	deps, dir := testDeps(t)
	writeDataFile(t, dir, "items.csv", "id\n1\n2\n")
	h := newHandler(t, deps)

	rr := postJSON(t, h, "/v1/rows/delete", `{"file":"items.csv","row_id":2,"persist":false}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["persisted"] != false || body["deleted_count"] != float64(1) {
		t.Fatalf("body = %v", body)
	}
	src, err := deps.Resolver.Resolve("items.csv")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := deps.Deletes.Snapshot(src.Path); len(got) != 1 || got[0] != 2 {
		t.Fatalf("registry = %v", got)
	}
}

func TestDeleteRowAccumulatesCount(t *testing.T) {
	deps, dir := testDeps(t)
	writeDataFile(t, dir, "items.csv", "id\n1\n2\n3\n")
	h := newHandler(t, deps)

	postJSON(t, h, "/v1/rows/delete", `{"file":"items.csv","row_id":1}`)
	rr := postJSON(t, h, "/v1/rows/delete", `{"file":"items.csv","row_id":3}`)

	if body := decodeBody(t, rr); body["deleted_count"] != float64(2) {
		t.Fatalf("deleted_count = %v", body["deleted_count"])
	}
}

func TestDeleteRowRejectsNonPositiveOrdinal(t *testing.T) {
	deps, dir := testDeps(t)
	writeDataFile(t, dir, "items.csv", "id\n1\n")
	h := newHandler(t, deps)

	rr := postJSON(t, h, "/v1/rows/delete", `{"file":"items.csv","row_id":0}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "ROW_ID_INVALID" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestDeleteRowPersistsThroughMutator(t *testing.T) {
	deps, dir := testDeps(t)
	writeDataFile(t, dir, "items.csv", "id\n1\n2\n3\n")
	mutator := &fakeMutator{}
	deps.Mutator = mutator
	deps.Engine = &fakeEngine{countRaw: func(dataset.Source) (int64, error) { return 3, nil }}
	h := newHandler(t, deps)

	rr := postJSON(t, h, "/v1/rows/delete", `{"file":"items.csv","row_id":2,"persist":true}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["persisted"] != true || body["total_rows"] != float64(2) {
		t.Fatalf("body = %v", body)
	}
	if len(mutator.rows) != 1 || mutator.rows[0] != 2 {
		t.Fatalf("mutator rows = %v", mutator.rows)
	}
}

func TestDeleteRowPersistBeyondTotalIs404(t *testing.T) {
	deps, dir := testDeps(t)
	writeDataFile(t, dir, "items.csv", "id\n1\n")
	mutator := &fakeMutator{}
	deps.Mutator = mutator
	deps.Engine = &fakeEngine{countRaw: func(dataset.Source) (int64, error) { return 1, nil }}
	h := newHandler(t, deps)

	rr := postJSON(t, h, "/v1/rows/delete", `{"file":"items.csv","row_id":5,"persist":true}`)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(mutator.rows) != 0 {
		t.Fatalf("mutator should not run, rows = %v", mutator.rows)
	}
}

func TestDeleteRowPersistDisabledIs403(t *testing.T) {
	deps, dir := testDeps(t)
	writeDataFile(t, dir, "items.csv", "id\n1\n")
	deps.AllowDelete = false
	deps.Mutator = &fakeMutator{}
	h := newHandler(t, deps)

	rr := postJSON(t, h, "/v1/rows/delete", `{"file":"items.csv","row_id":1,"persist":true}`)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "PERSIST_DISABLED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestDeleteColumnSoftIsNoOp(t *testing.T) {
	deps, dir := testDeps(t)
	writeDataFile(t, dir, "items.csv", "id,label\n1,alpha\n")
	mutator := &fakeMutator{}
	deps.Mutator = mutator
	h := newHandler(t, deps)

	rr := postJSON(t, h, "/v1/columns/delete", `{"file":"items.csv","column":"label"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["persisted"] != false || body["column"] != "label" {
		t.Fatalf("body = %v", body)
	}
	if len(mutator.columns) != 0 {
		t.Fatalf("mutator should not run, columns = %v", mutator.columns)
	}
}

func TestDeleteColumnPersistMapsSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing", mutate.ErrColumnNotFound, http.StatusNotFound, "COLUMN_NOT_FOUND"},
		{"last", mutate.ErrLastColumn, http.StatusBadRequest, "LAST_COLUMN"},
		{"shape", mutate.ErrInvalidShape, http.StatusBadRequest, "INVALID_SHAPE"},
		{"disabled", mutate.ErrDisabled, http.StatusForbidden, "PERSIST_DISABLED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, dir := testDeps(t)
			writeDataFile(t, dir, "items.csv", "id,label\n1,alpha\n")
			deps.Mutator = &fakeMutator{columnErr: tt.err}
			h := newHandler(t, deps)

			rr := postJSON(t, h, "/v1/columns/delete", `{"file":"items.csv","column":"label","persist":true}`)

			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			if body := decodeBody(t, rr); body["error_code"] != tt.code {
				t.Fatalf("error_code = %v, want %s", body["error_code"], tt.code)
			}
		})
	}
}

func TestDeleteColumnRequiresName(t *testing.T) {
	deps, dir := testDeps(t)
	writeDataFile(t, dir, "items.csv", "id\n1\n")
	h := newHandler(t, deps)

	rr := postJSON(t, h, "/v1/columns/delete", `{"file":"items.csv","column":"  ","persist":true}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "COLUMN_REQUIRED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}
