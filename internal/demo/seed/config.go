package seed

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	Dir     string
	Rows    int
	Users   int
	Formats []string
	Force   bool
	Seed    int64
}

func DefaultConfig() Config {
	return Config{
		Dir:     "data",
		Rows:    500,
		Users:   200,
		Formats: []string{"csv", "jsonl", "parquet"},
		Force:   false,
		Seed:    time.Now().UTC().UnixNano(),
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if err := applyString(lookup, "DATAPEEK_DEMO_DIR", &cfg.Dir); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DATAPEEK_DEMO_ROWS", &cfg.Rows); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DATAPEEK_DEMO_USERS", &cfg.Users); err != nil {
		return Config{}, err
	}
	if err := applyFormats(lookup, "DATAPEEK_DEMO_FORMATS", &cfg.Formats); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DATAPEEK_DEMO_FORCE", &cfg.Force); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "DATAPEEK_DEMO_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.Dir) == "" {
		return Config{}, fmt.Errorf("DATAPEEK_DEMO_DIR is required")
	}
	if cfg.Rows <= 0 {
		return Config{}, fmt.Errorf("DATAPEEK_DEMO_ROWS must be > 0")
	}
	if cfg.Users <= 0 {
		return Config{}, fmt.Errorf("DATAPEEK_DEMO_USERS must be > 0")
	}
	if len(cfg.Formats) == 0 {
		return Config{}, fmt.Errorf("DATAPEEK_DEMO_FORMATS must name at least one format")
	}

	cfg.Dir = strings.TrimSpace(cfg.Dir)
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyFormats(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	parts := strings.Split(raw, ",")
	formats := make([]string, 0, len(parts))
	for _, part := range parts {
		format := strings.ToLower(strings.TrimSpace(part))
		if format == "" {
			continue
		}
		switch format {
		case "csv", "tsv", "jsonl", "parquet":
			formats = append(formats, format)
		default:
			return fmt.Errorf("invalid %s: unknown format %q", key, format)
		}
	}
	*dst = formats
	return nil
}
