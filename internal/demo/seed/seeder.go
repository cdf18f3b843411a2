// Package seed writes small synthetic datasets in every format the browser
// understands, so a fresh checkout has something to explore.
package seed

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

type Seeder struct {
	cfg Config
	log *slog.Logger
}

func NewSeeder(cfg Config, logger *slog.Logger) (*Seeder, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("target directory is required")
	}
	if cfg.Rows <= 0 {
		return nil, fmt.Errorf("row count must be > 0")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Seeder{cfg: cfg, log: logger}, nil
}

// Run materializes one batch of events in every requested format. Every format
// gets the same rows, so cross-format comparisons line up. Existing files are
// left alone unless Force is set.
func (s *Seeder) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	generator := NewGenerator(s.cfg.Seed, s.cfg.Users)
	events := make([]Event, s.cfg.Rows)
	for i := range events {
		events[i] = generator.Next()
	}

	for _, format := range s.cfg.Formats {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(s.cfg.Dir, "events."+format)
		if !s.cfg.Force {
			if _, err := os.Stat(path); err == nil {
				s.log.Info("demo file already exists, skipping", slog.String("file", path))
				continue
			}
		}

		var err error
		switch format {
		case "csv":
			err = writeSeparated(path, events, ',')
		case "tsv":
			err = writeSeparated(path, events, '\t')
		case "jsonl":
			err = writeJSONL(path, events)
		case "parquet":
			err = writeParquet(path, events)
		default:
			err = fmt.Errorf("unsupported demo format %q", format)
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		s.log.Info("wrote demo file", slog.String("file", path), slog.Int("rows", len(events)))
	}
	return nil
}

func writeSeparated(path string, events []Event, comma rune) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(file)
	writer.Comma = comma
	header := []string{"event_id", "user_id", "session_id", "event_type", "amount", "currency", "country", "device", "occurred_at"}
	if err := writer.Write(header); err != nil {
		_ = file.Close()
		return err
	}
	for _, event := range events {
		record := []string{
			strconv.FormatInt(event.EventID, 10),
			event.UserID,
			event.SessionID,
			event.EventType,
			strconv.FormatFloat(event.Amount, 'f', 2, 64),
			event.Currency,
			event.Country,
			event.Device,
			event.OccurredAt,
		}
		if err := writer.Write(record); err != nil {
			_ = file.Close()
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func writeJSONL(path string, events []Event) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(file)
	for _, event := range events {
		if err := encoder.Encode(event); err != nil {
			_ = file.Close()
			return err
		}
	}
	return file.Close()
}

func writeParquet(path string, events []Event) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	writer := parquet.NewGenericWriter[Event](file)
	if _, err := writer.Write(events); err != nil {
		_ = file.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
