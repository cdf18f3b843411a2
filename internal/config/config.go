package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Data          DataConfig
	Query         QueryConfig
	Profiling     ProfilingConfig
	UI            UIConfig
	AI            AIConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DataConfig struct {
	Dir             string
	File            string
	CacheDir        string
	AllowDeleteData bool
	Watch           bool
}

type QueryConfig struct {
	DefaultLimit  int
	MaxLimit      int
	MaxCellChars  int
	DefaultSample int
	MaxSample     int
}

type ProfilingConfig struct {
	DefaultRows  int
	MaxRows      int
	Mode         string
	MaxCellChars int
	NestedPolicy string
}

type UIConfig struct {
	Enabled bool
}

type AIConfig struct {
	TranslateEnabled bool
	BaseURL          string
	APIKey           string
	Model            string
	Temperature      float64
	Timeout          time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("DATAPEEK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid DATAPEEK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "DATAPEEK_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATAPEEK_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DATAPEEK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DATAPEEK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DATAPEEK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATAPEEK_DATA_DIR", &cfg.Data.Dir); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATAPEEK_DATA_FILE", &cfg.Data.File); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATAPEEK_CACHE_DIR", &cfg.Data.CacheDir); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DATAPEEK_ALLOW_DELETE_DATA", &cfg.Data.AllowDeleteData); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DATAPEEK_WATCH_DATA", &cfg.Data.Watch); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DATAPEEK_QUERY_DEFAULT_LIMIT", &cfg.Query.DefaultLimit); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DATAPEEK_QUERY_MAX_LIMIT", &cfg.Query.MaxLimit); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DATAPEEK_QUERY_MAX_CELL_CHARS", &cfg.Query.MaxCellChars); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DATAPEEK_QUERY_DEFAULT_SAMPLE", &cfg.Query.DefaultSample); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DATAPEEK_QUERY_MAX_SAMPLE", &cfg.Query.MaxSample); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DATAPEEK_EDA_ROW_LIMIT", &cfg.Profiling.DefaultRows); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DATAPEEK_EDA_MAX_ROWS", &cfg.Profiling.MaxRows); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATAPEEK_EDA_PROFILE_MODE", &cfg.Profiling.Mode); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DATAPEEK_EDA_CELL_MAX_CHARS", &cfg.Profiling.MaxCellChars); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATAPEEK_EDA_NESTED_POLICY", &cfg.Profiling.NestedPolicy); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DATAPEEK_UI_ENABLED", &cfg.UI.Enabled); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DATAPEEK_AI_TRANSLATE_ENABLED", &cfg.AI.TranslateEnabled); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATAPEEK_OPENAI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATAPEEK_OPENAI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DATAPEEK_OPENAI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "DATAPEEK_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DATAPEEK_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DATAPEEK_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "DATAPEEK_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Data.Dir == "" {
		return Config{}, fmt.Errorf("data directory is required")
	}
	if cfg.Query.DefaultLimit < 1 {
		return Config{}, fmt.Errorf("query default limit must be positive")
	}
	if cfg.Query.MaxLimit < cfg.Query.DefaultLimit {
		return Config{}, fmt.Errorf("query max limit must be >= default limit")
	}
	switch cfg.Profiling.NestedPolicy {
	case "stringify", "drop":
	default:
		return Config{}, fmt.Errorf("invalid DATAPEEK_EDA_NESTED_POLICY: %q", cfg.Profiling.NestedPolicy)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "datapeek-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Data: DataConfig{
			Dir:             "data",
			File:            "",
			CacheDir:        "cache",
			AllowDeleteData: true,
			Watch:           false,
		},
		Query: QueryConfig{
			DefaultLimit:  100,
			MaxLimit:      1000,
			MaxCellChars:  1200,
			DefaultSample: 500,
			MaxSample:     2000,
		},
		Profiling: ProfilingConfig{
			DefaultRows:  5000,
			MaxRows:      50000,
			Mode:         "minimal",
			MaxCellChars: 5000,
			NestedPolicy: "stringify",
		},
		UI: UIConfig{
			Enabled: true,
		},
		AI: AIConfig{
			TranslateEnabled: false,
			BaseURL:          "https://api.openai.com/v1",
			Model:            "gpt-5.2",
			Temperature:      0,
			Timeout:          60 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileDev:
		cfg.Observability.LogJSON = false
		cfg.Data.Watch = true
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Data.AllowDeleteData = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
