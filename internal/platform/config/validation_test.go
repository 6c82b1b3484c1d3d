package config

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCircuitBreaker() CircuitBreakerConfig {
	return CircuitBreakerConfig{MaxFailures: 5, Timeout: 30 * time.Second, HalfOpenLimit: 3}
}

func validConfig() *Config {
	return &Config{
		App: AppConfig{Name: "daily-quote-service", Version: "1.0.0", Environment: "test"},
		Server: ServerConfig{
			Port:            8080,
			Host:            "127.0.0.1",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: 5 * time.Second,
			MaxRequestSize:  DefaultMaxRequestSize,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			Driver:         StoreDriverFile,
			Path:           "./data/daily_quote.json",
			Timeout:        2 * time.Second,
			CircuitBreaker: validCircuitBreaker(),
		},
		Quote: QuoteConfig{
			Timezone: "Europe/Berlin",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "qa environment", mutate: func(c *Config) { c.App.Environment = "qa" }},
		{name: "lowest port", mutate: func(c *Config) { c.Server.Port = 1 }},
		{name: "highest port", mutate: func(c *Config) { c.Server.Port = 65535 }},
		{name: "trace level", mutate: func(c *Config) { c.Log.Level = "trace" }},
		{name: "pretty format", mutate: func(c *Config) { c.Log.Format = "pretty" }},
		{
			name: "file log with its own level",
			mutate: func(c *Config) {
				c.Log.File = LogFileConfig{Enabled: true, Path: "/var/log/dailyquote.log", Level: "debug", MaxSizeMB: 10}
			},
		},
		{
			name: "telemetry with headers",
			mutate: func(c *Config) {
				c.Telemetry = TelemetryConfig{
					Enabled:      true,
					Endpoint:     "http://collector:4317",
					ServiceName:  "daily-quote-service",
					SamplingRate: 0.25,
					Headers:      map[string]string{"x-api-key": "k"},
				}
			},
		},
		{name: "missing name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: []string{"app.name is required"}},
		{name: "unknown environment", mutate: func(c *Config) { c.App.Environment = "staging" }, wantErr: []string{"app.environment must be one of"}},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: []string{"server.port is required"}},
		{name: "port too high", mutate: func(c *Config) { c.Server.Port = 65536 }, wantErr: []string{"server.port must be at most 65535"}},
		{name: "sub-second read timeout", mutate: func(c *Config) { c.Server.ReadTimeout = 500 * time.Millisecond }, wantErr: []string{"server.read_timeout must be at least 1s"}},
		{name: "negative request size", mutate: func(c *Config) { c.Server.MaxRequestSize = -1 }, wantErr: []string{"server.max_request_size"}},
		{name: "uppercase level", mutate: func(c *Config) { c.Log.Level = "DEBUG" }, wantErr: []string{"log.level must be one of"}},
		{name: "xml format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: []string{"log.format must be one of"}},
		{name: "bad file level", mutate: func(c *Config) { c.Log.File.Level = "verbose" }, wantErr: []string{"log.file.level must be one of"}},
		{
			name: "oversized log file",
			mutate: func(c *Config) {
				c.Log.File = LogFileConfig{Enabled: true, Path: "/var/log/dailyquote.log", MaxSizeMB: 1025}
			},
			wantErr: []string{"log.file.max_size must be at most 1024"},
		},
		{
			name:    "telemetry without endpoint",
			mutate:  func(c *Config) { c.Telemetry = TelemetryConfig{Enabled: true, ServiceName: "svc"} },
			wantErr: []string{"telemetry.endpoint is required when enabled is true"},
		},
		{
			name:    "telemetry endpoint not a URL",
			mutate:  func(c *Config) { c.Telemetry = TelemetryConfig{Enabled: true, ServiceName: "svc", Endpoint: "collector"} },
			wantErr: []string{"telemetry.endpoint must be a valid URL"},
		},
		{
			name:    "telemetry without service name",
			mutate:  func(c *Config) { c.Telemetry = TelemetryConfig{Enabled: true, Endpoint: "http://collector:4317"} },
			wantErr: []string{"telemetry.service_name is required"},
		},
		{name: "negative sampling", mutate: func(c *Config) { c.Telemetry.SamplingRate = -0.1 }, wantErr: []string{"telemetry.sampling_rate must be at least 0"}},
		{name: "sampling above one", mutate: func(c *Config) { c.Telemetry.SamplingRate = 1.1 }, wantErr: []string{"telemetry.sampling_rate must be at most 1"}},
		{
			name: "several problems at once",
			mutate: func(c *Config) {
				c.App.Name = ""
				c.App.Version = ""
				c.Server.Host = ""
			},
			wantErr: []string{"app.name", "app.version", "server.host"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "config validation failed"))
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestConfig_Validate_StoreConfig(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		wantErr string
	}{
		{name: "memory without path", store: StoreConfig{Driver: StoreDriverMemory}},
		{name: "file with path", store: StoreConfig{Driver: StoreDriverFile, Path: "quote.json"}},
		{name: "sqlite with path", store: StoreConfig{Driver: StoreDriverSQLite, Path: "quote.db"}},
		{name: "file without path", store: StoreConfig{Driver: StoreDriverFile}, wantErr: "store.path is required"},
		{name: "sqlite without path", store: StoreConfig{Driver: StoreDriverSQLite}, wantErr: "store.path is required"},
		{name: "unknown driver", store: StoreConfig{Driver: "redis", Path: "x"}, wantErr: "store.driver must be one of"},
		{name: "missing driver", store: StoreConfig{Path: "x"}, wantErr: "store.driver is required"},
		{name: "timeout set", store: StoreConfig{Driver: StoreDriverMemory, Timeout: 2 * time.Second}},
		{name: "timeout disabled", store: StoreConfig{Driver: StoreDriverMemory, Timeout: 0}},
		{name: "timeout too short", store: StoreConfig{Driver: StoreDriverMemory, Timeout: time.Millisecond}, wantErr: "store.timeout must be at least 10ms"},
		{name: "negative timeout", store: StoreConfig{Driver: StoreDriverMemory, Timeout: -time.Second}, wantErr: "store.timeout must be at least 10ms"},
		{
			name:    "circuit breaker without failures",
			store:   StoreConfig{Driver: StoreDriverMemory, CircuitBreaker: CircuitBreakerConfig{Timeout: time.Second, HalfOpenLimit: 1}},
			wantErr: "store.circuit_breaker.max_failures is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.store.CircuitBreaker == (CircuitBreakerConfig{}) {
				tt.store.CircuitBreaker = validCircuitBreaker()
			}
			cfg.Store = tt.store

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Validate_QuoteConfig(t *testing.T) {
	tests := []struct {
		timezone string
		wantErr  bool
	}{
		{"", false},
		{"Local", false},
		{"UTC", false},
		{"America/New_York", false},
		{"Mars/Olympus_Mons", true},
		{"local", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("timezone_%q", tt.timezone), func(t *testing.T) {
			cfg := validConfig()
			cfg.Quote.Timezone = tt.timezone

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "quote.timezone")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuoteConfig_Location(t *testing.T) {
	loc, err := QuoteConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = QuoteConfig{Timezone: "Local"}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = QuoteConfig{Timezone: "Asia/Tokyo"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())

	_, err = QuoteConfig{Timezone: "Nowhere/Special"}.Location()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhere/Special")
}

func TestFormatFieldPath(t *testing.T) {
	tests := map[string]string{
		"Config.server.port":                        "server.port",
		"Config.store.circuit_breaker.max_failures": "store.circuit_breaker.max_failures",
		"catalogFile.quotes[2]":                     "quotes[2]",
		"Config":                                    "Config",
	}

	for namespace, want := range tests {
		t.Run(namespace, func(t *testing.T) {
			assert.Equal(t, want, formatFieldPath(namespace))
		})
	}
}

func TestDescribeCondition(t *testing.T) {
	assert.Equal(t, "driver is memory", describeCondition("Driver memory"))
	assert.Equal(t, "enabled is true and insecure is false", describeCondition("Enabled true Insecure false"))
	assert.Equal(t, "Odd", describeCondition("Odd"))
}

func TestConfig_Validate_ConditionalMessages(t *testing.T) {
	t.Run("store path", func(t *testing.T) {
		cfg := validConfig()
		cfg.Store.Driver = StoreDriverSQLite
		cfg.Store.Path = ""

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "store.path is required unless driver is memory")
	})

	t.Run("log file path", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.File.Enabled = true
		cfg.Log.File.Path = ""

		err := cfg.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "log.file.path is required when enabled is true")
	})
}
