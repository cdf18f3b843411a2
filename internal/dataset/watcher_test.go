package dataset

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchClearsMarksOnExternalWrite(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "events.csv")
	writeTestFile(t, target, "id\n1\n2\n")

	resolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}

	deletes := NewSoftDeletes()
	deletes.Mark(resolved, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := Watch(ctx, logger, root, deletes); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(target, []byte("id\n9\n"), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for deletes.Count(resolved) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("marks were not cleared after external write")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchIgnoresUnsupportedFiles(t *testing.T) {
	root := t.TempDir()
	tracked := filepath.Join(root, "events.csv")
	writeTestFile(t, tracked, "id\n1\n")

	resolved, err := filepath.EvalSymlinks(tracked)
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}

	deletes := NewSoftDeletes()
	deletes.Mark(resolved, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := Watch(ctx, logger, root, deletes); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write unrelated file: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if deletes.Count(resolved) != 1 {
		t.Fatal("marks for an untouched dataset file must survive")
	}
}
