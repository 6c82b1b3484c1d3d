// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultMaxRequestSize is the default maximum request body size (1MB).
	DefaultMaxRequestSize = 1 << 20 // 1048576 bytes

	// DefaultLogFileMaxSizeMB is the default max log file size in megabytes.
	DefaultLogFileMaxSizeMB = 100

	// DefaultLogFileMaxBackups is the default number of old log files to retain.
	DefaultLogFileMaxBackups = 3

	// DefaultLogFileMaxAgeDays is the default max days to retain old log files.
	DefaultLogFileMaxAgeDays = 28

	// DefaultStoreCircuitMaxFailures is the default failures before the store circuit opens.
	DefaultStoreCircuitMaxFailures = 5

	// DefaultStoreCircuitHalfOpenLimit is the default successes to close the store circuit.
	DefaultStoreCircuitHalfOpenLimit = 3
)

// Config is the root configuration structure.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Store     StoreConfig     `koanf:"store"     validate:"required"`
	Quote     QuoteConfig     `koanf:"quote"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"       validate:"required_if=Enabled true"`
	Level      string `koanf:"level"      validate:"omitempty,oneof=trace debug info warn error"`
	MaxSizeMB  int    `koanf:"max_size"   validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"    validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	Insecure     bool    `koanf:"insecure"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`

	// Headers are attached to every OTLP export. Values are redacted in logs.
	Headers map[string]string `koanf:"headers"`
}

// Store drivers accepted in StoreConfig.Driver.
const (
	StoreDriverMemory = "memory"
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
)

// StoreConfig selects the key-value store backing the daily quote cache.
type StoreConfig struct {
	Driver         string               `koanf:"driver"          validate:"required,oneof=memory file sqlite"`
	Path           string               `koanf:"path"            validate:"required_unless=Driver memory"`
	// Timeout bounds each store operation; zero disables it.
	Timeout        time.Duration        `koanf:"timeout"         validate:"omitempty,min=10ms"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
}

// CircuitBreakerConfig contains circuit breaker settings for the store.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// QuoteConfig contains quote selection settings.
type QuoteConfig struct {
	// Timezone is an IANA zone name. Empty or "Local" uses the host zone.
	Timezone string `koanf:"timezone" validate:"omitempty,timezone|eq=Local"`

	// ZeroBasedDay maps January 1 to the first catalog entry instead of
	// the second.
	ZeroBasedDay bool `koanf:"zero_based_day"`

	// CatalogFile optionally replaces the built-in catalog.
	CatalogFile string `koanf:"catalog_file"`
}

// Location resolves Timezone.
func (q QuoteConfig) Location() (*time.Location, error) {
	if q.Timezone == "" || q.Timezone == "Local" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", q.Timezone, err)
	}

	return loc, nil
}

// defaults holds every known key. Keys missing here cannot be set from the
// environment, see envKey.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "daily-quote-service",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/app.log",
		"log.file.level":       "",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.insecure":      true,
		"telemetry.service_name":  "daily-quote-service",
		"telemetry.sampling_rate": 1.0,

		"store.driver":                          StoreDriverFile,
		"store.path":                            "./data/daily_quote.json",
		"store.timeout":                         "2s",
		"store.circuit_breaker.max_failures":    DefaultStoreCircuitMaxFailures,
		"store.circuit_breaker.timeout":         "30s",
		"store.circuit_breaker.half_open_limit": DefaultStoreCircuitHalfOpenLimit,

		"quote.timezone":       "Local",
		"quote.zero_based_day": false,
		"quote.catalog_file":   "",
	}
}

const (
	envPrefix = "APP_"

	// envConfigDir overrides DefaultConfigDir. It is not a config key.
	envConfigDir = "APP_CONFIG_DIR"

	// envHeadersPrefix carries OTLP headers, one variable per header:
	// APP_TELEMETRY_HEADERS_X_API_KEY sets the x-api-key header.
	envHeadersPrefix = "TELEMETRY_HEADERS_"
)

// DefaultConfigDir holds base.yaml and the per-profile files.
const DefaultConfigDir = "configs"

// Load builds the configuration from, lowest precedence first:
//  1. defaults
//  2. <dir>/base.yaml
//  3. <dir>/<profile>.yaml
//  4. APP_* environment variables
//
// dir is APP_CONFIG_DIR when set, DefaultConfigDir otherwise. Missing files
// are skipped. The result is not validated; call Validate.
func Load(profile string) (*Config, error) {
	dir := os.Getenv(envConfigDir)
	if dir == "" {
		dir = DefaultConfigDir
	}

	k := koanf.New(".")

	defaultValues := defaults()
	if err := k.Load(confmap.Provider(defaultValues, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	files := []string{filepath.Join(dir, "base.yaml")}
	if profile != "" {
		files = append(files, filepath.Join(dir, profile+".yaml"))
	}

	for _, path := range files {
		if err := loadFileIfExists(k, path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey(defaultValues)), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envKey maps APP_STORE_CIRCUIT_BREAKER_MAX_FAILURES back to
// store.circuit_breaker.max_failures by matching against the known keys,
// since underscores appear both as separators and inside key names.
// Unknown variables map to "" and are ignored.
func envKey(known map[string]any) func(string) string {
	byEnv := make(map[string]string, len(known))
	for key := range known {
		byEnv[envPrefix+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
	}

	return func(name string) string {
		if key, ok := byEnv[name]; ok {
			return key
		}

		if header, ok := strings.CutPrefix(name, envPrefix+envHeadersPrefix); ok && header != "" {
			return "telemetry.headers." + strings.ToLower(strings.ReplaceAll(header, "_", "-"))
		}

		return ""
	}
}

func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
