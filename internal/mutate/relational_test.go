package mutate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/datapeek/datapeek/internal/dataset"
)

type record struct {
	ID    int64  `parquet:"id"`
	Label string `parquet:"label"`
}

func sourceFor(t *testing.T, path string) dataset.Source {
	t.Helper()
	src, err := dataset.NewSource(path)
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	return src
}

func assertOnlyFile(t *testing.T, path string) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != filepath.Base(path) {
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		t.Fatalf("directory entries = %v", names)
	}
}

func TestDeleteRowRewritesCSV(t *testing.T) {
	path := writeDatasetFile(t, "items.csv", "id,label\n1,alpha\n2,beta\n3,gamma\n")
	mutator := NewMutator(dataset.NewSoftDeletes(), true)

	if err := mutator.DeleteRow(context.Background(), sourceFor(t, path), 2); err != nil {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	if got := readDatasetFile(t, path); got != "id,label\n1,alpha\n3,gamma\n" {
		t.Fatalf("content = %q", got)
	}
	assertOnlyFile(t, path)
}

func TestDeleteRowMissingOrdinal(t *testing.T) {
	path := writeDatasetFile(t, "items.csv", "id,label\n1,alpha\n")
	mutator := NewMutator(dataset.NewSoftDeletes(), true)

	err := mutator.DeleteRow(context.Background(), sourceFor(t, path), 9)
	if !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	if got := readDatasetFile(t, path); got != "id,label\n1,alpha\n" {
		t.Fatalf("file changed: %q", got)
	}
	assertOnlyFile(t, path)
}

func TestDeleteRowRewritesParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.parquet")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create parquet: %v", err)
	}
	writer := parquet.NewGenericWriter[record](file)
	if _, err := writer.Write([]record{{ID: 1, Label: "alpha"}, {ID: 2, Label: "beta"}}); err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close parquet: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	mutator := NewMutator(dataset.NewSoftDeletes(), true)

	if err := mutator.DeleteRow(context.Background(), sourceFor(t, path), 1); err != nil {
		t.Fatalf("DeleteRow() error = %v", err)
	}
	rows, err := parquet.ReadFile[record](path)
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != 2 || rows[0].Label != "beta" {
		t.Fatalf("rows = %#v", rows)
	}
}

func TestDeleteColumnRewritesTSV(t *testing.T) {
	path := writeDatasetFile(t, "items.tsv", "id\tlabel\n1\talpha\n2\tbeta\n")
	mutator := NewMutator(dataset.NewSoftDeletes(), true)

	if err := mutator.DeleteColumn(context.Background(), sourceFor(t, path), "label"); err != nil {
		t.Fatalf("DeleteColumn() error = %v", err)
	}
	if got := readDatasetFile(t, path); got != "id\n1\n2\n" {
		t.Fatalf("content = %q", got)
	}
	assertOnlyFile(t, path)
}

func TestDeleteColumnUnknownName(t *testing.T) {
	path := writeDatasetFile(t, "items.csv", "id,label\n1,alpha\n")
	mutator := NewMutator(dataset.NewSoftDeletes(), true)

	err := mutator.DeleteColumn(context.Background(), sourceFor(t, path), "missing")
	if !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("DeleteColumn() error = %v", err)
	}
}

func TestDeleteColumnRefusesLastColumn(t *testing.T) {
	path := writeDatasetFile(t, "items.csv", "id\n1\n2\n")
	mutator := NewMutator(dataset.NewSoftDeletes(), true)

	err := mutator.DeleteColumn(context.Background(), sourceFor(t, path), "id")
	if !errors.Is(err, ErrLastColumn) {
		t.Fatalf("DeleteColumn() error = %v", err)
	}
	if got := readDatasetFile(t, path); got != "id\n1\n2\n" {
		t.Fatalf("file changed: %q", got)
	}
}
