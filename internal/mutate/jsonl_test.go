package mutate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeDatasetFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func readDatasetFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestDeleteJSONLRowSkipsBlankLines(t *testing.T) {
	path := writeDatasetFile(t, "items.jsonl",
		"{\"id\":1}\n\n{\"id\":2}\n{\"id\":3}\n")

	if err := deleteJSONLRow(path, 2); err != nil {
		t.Fatalf("deleteJSONLRow() error = %v", err)
	}
	if got := readDatasetFile(t, path); got != "{\"id\":1}\n{\"id\":3}\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestDeleteJSONLRowNotFound(t *testing.T) {
	path := writeDatasetFile(t, "items.jsonl", "{\"id\":1}\n{\"id\":2}\n")

	if err := deleteJSONLRow(path, 5); !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("deleteJSONLRow() error = %v", err)
	}
	if got := readDatasetFile(t, path); got != "{\"id\":1}\n{\"id\":2}\n" {
		t.Fatalf("file changed: %q", got)
	}
}

func TestDeleteJSONLRowRejectsInvalidLine(t *testing.T) {
	path := writeDatasetFile(t, "items.jsonl", "{\"id\":1}\nnot json\n{\"id\":3}\n")

	if err := deleteJSONLRow(path, 3); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("deleteJSONLRow() error = %v", err)
	}
}

func TestDeleteJSONLColumnRemovesKeyEverywhere(t *testing.T) {
	path := writeDatasetFile(t, "items.jsonl",
		"{\"id\":1,\"label\":\"a\"}\n{\"id\":2}\n{\"id\":3,\"label\":\"c\"}\n")

	if err := deleteJSONLColumn(path, "label"); err != nil {
		t.Fatalf("deleteJSONLColumn() error = %v", err)
	}
	if got := readDatasetFile(t, path); got != "{\"id\":1}\n{\"id\":2}\n{\"id\":3}\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestDeleteJSONLColumnNotFound(t *testing.T) {
	path := writeDatasetFile(t, "items.jsonl", "{\"id\":1}\n")

	if err := deleteJSONLColumn(path, "label"); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("deleteJSONLColumn() error = %v", err)
	}
}

func TestDeleteJSONLColumnRefusesLastColumn(t *testing.T) {
	path := writeDatasetFile(t, "items.jsonl", "{\"id\":1}\n{\"id\":2}\n")

	if err := deleteJSONLColumn(path, "id"); !errors.Is(err, ErrLastColumn) {
		t.Fatalf("deleteJSONLColumn() error = %v", err)
	}
	if got := readDatasetFile(t, path); got != "{\"id\":1}\n{\"id\":2}\n" {
		t.Fatalf("file changed: %q", got)
	}
}

func TestDeleteJSONLColumnRequiresObjects(t *testing.T) {
	path := writeDatasetFile(t, "items.jsonl", "{\"id\":1}\n[1,2,3]\n")

	if err := deleteJSONLColumn(path, "id"); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("deleteJSONLColumn() error = %v", err)
	}
}
