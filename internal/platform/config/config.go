package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultLogLevel          = "info"
	defaultCatalogPath       = "catalog.yaml"
	defaultLanguagesTTL      = 60 * time.Second
	defaultLanguagesTimeout  = 5 * time.Second
	defaultLanguagesSweep    = 5 * time.Minute
	defaultSessionTTL        = 30 * time.Minute
	defaultSessionSweep      = time.Minute
	defaultSessionSweepBatch = 200
	defaultDebounceWindow    = 300 * time.Millisecond
	defaultRateLimitDefault  = 120
	defaultRateLimitSessions = 30
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Catalog    CatalogConfig
	Languages  LanguagesConfig
	Sessions   SessionConfig
	RateLimits RateLimitConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string
}

// CatalogConfig locates the product catalog file.
type CatalogConfig struct {
	Path  string
	Watch bool
}

// LanguagesConfig configures the upstream language availability API and its cache.
type LanguagesConfig struct {
	BaseURL        string
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	SweepInterval  time.Duration
}

// SessionConfig controls server-side filter sessions.
type SessionConfig struct {
	TTL            time.Duration
	SweepInterval  time.Duration
	SweepBatchSize int
	DebounceWindow time.Duration
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	DefaultPerMinute        int
	SessionCreatesPerMinute int
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.LookupEnv, relying only on
// provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "STOREFRONT_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "STOREFRONT_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "STOREFRONT_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "STOREFRONT_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Log: LogConfig{
			Level: stringWithDefault(lookup, "STOREFRONT_LOG_LEVEL", defaultLogLevel),
		},
		Catalog: CatalogConfig{
			Path:  stringWithDefault(lookup, "STOREFRONT_CATALOG_PATH", defaultCatalogPath),
			Watch: boolWithDefault(lookup, "STOREFRONT_CATALOG_WATCH", true),
		},
		Languages: LanguagesConfig{
			BaseURL:        stringWithDefault(lookup, "STOREFRONT_LANGUAGES_BASE_URL", ""),
			CacheTTL:       durationWithDefault(lookup, "STOREFRONT_LANGUAGES_CACHE_TTL", defaultLanguagesTTL),
			RequestTimeout: durationWithDefault(lookup, "STOREFRONT_LANGUAGES_REQUEST_TIMEOUT", defaultLanguagesTimeout),
			SweepInterval:  durationWithDefault(lookup, "STOREFRONT_LANGUAGES_SWEEP_INTERVAL", defaultLanguagesSweep),
		},
		Sessions: SessionConfig{
			TTL:            durationWithDefault(lookup, "STOREFRONT_SESSION_TTL", defaultSessionTTL),
			SweepInterval:  durationWithDefault(lookup, "STOREFRONT_SESSION_SWEEP_INTERVAL", defaultSessionSweep),
			SweepBatchSize: intWithDefault(lookup, "STOREFRONT_SESSION_SWEEP_BATCH", defaultSessionSweepBatch),
			DebounceWindow: durationWithDefault(lookup, "STOREFRONT_SESSION_DEBOUNCE_WINDOW", defaultDebounceWindow),
		},
		RateLimits: RateLimitConfig{
			DefaultPerMinute:        intWithDefault(lookup, "STOREFRONT_RATELIMIT_DEFAULT_PER_MIN", defaultRateLimitDefault),
			SessionCreatesPerMinute: intWithDefault(lookup, "STOREFRONT_RATELIMIT_SESSION_CREATES_PER_MIN", defaultRateLimitSessions),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Catalog.Path) == "" {
		missing = append(missing, "Catalog.Path")
	}
	if cfg.Languages.CacheTTL <= 0 {
		missing = append(missing, "Languages.CacheTTL")
	}
	if cfg.Languages.RequestTimeout <= 0 {
		missing = append(missing, "Languages.RequestTimeout")
	}
	if cfg.Sessions.TTL <= 0 {
		missing = append(missing, "Sessions.TTL")
	}
	if cfg.Sessions.SweepInterval <= 0 {
		missing = append(missing, "Sessions.SweepInterval")
	}
	if cfg.Sessions.SweepBatchSize <= 0 {
		missing = append(missing, "Sessions.SweepBatchSize")
	}
	if cfg.Sessions.DebounceWindow <= 0 {
		missing = append(missing, "Sessions.DebounceWindow")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
