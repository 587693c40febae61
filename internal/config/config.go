// Package config handles loading, validation, and defaults for the
// scanwell configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scanwell/scanwell/internal/db"
	"github.com/scanwell/scanwell/internal/engine"
)

// Config represents the complete scanwell configuration
type Config struct {
	// Engine configuration (nmap binary and job execution)
	Engine EngineConfig `yaml:"engine" json:"engine"`

	// Target expansion limits
	Targets TargetsConfig `yaml:"targets" json:"targets"`

	// Database configuration
	Database db.Config `yaml:"database" json:"database"`

	// API configuration
	API APIConfig `yaml:"api" json:"api"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Discovery configuration
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Scheduler configuration
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
}

// EngineConfig holds settings for the external scan engine and its jobs
type EngineConfig struct {
	// Path to the nmap binary
	BinaryPath string `yaml:"binary_path" json:"binary_path"`

	// Directory where XML/normal/grepable artifacts are written
	ArtifactDir string `yaml:"artifact_dir" json:"artifact_dir"`

	// Maximum number of concurrently running sessions
	MaxConcurrentScans int `yaml:"max_concurrent_scans" json:"max_concurrent_scans"`

	// Default timing template when a request does not set one (0-5)
	DefaultTiming int `yaml:"default_timing" json:"default_timing"`

	// Grace period between SIGTERM and SIGKILL on cancellation
	TerminateGrace time.Duration `yaml:"terminate_grace" json:"terminate_grace"`

	// Registry entries older than this are eligible for cleanup
	AbandonedAfter time.Duration `yaml:"abandoned_after" json:"abandoned_after"`
}

// TargetsConfig holds limits applied during target expansion
type TargetsConfig struct {
	// Maximum addresses a single CIDR block may expand to; lines
	// exceeding the cap are rejected outright
	CIDRCap int `yaml:"cidr_cap" json:"cidr_cap"`

	// Maximum addresses a single range may expand to; expansion is
	// truncated at the cap
	RangeCap int `yaml:"range_cap" json:"range_cap"`
}

// APIConfig holds API server settings
type APIConfig struct {
	// Enable API server
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Listen port
	Port int `yaml:"port" json:"port"`

	// CORS settings
	CORS CORSConfig `yaml:"cors" json:"cors"`

	// Request timeout
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`

	// Maximum request size
	MaxRequestSize int64 `yaml:"max_request_size" json:"max_request_size"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	// Enable CORS
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Allowed origins
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`

	// Allowed methods
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`

	// Allowed headers
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`
}

// DiscoveryConfig holds host discovery settings
type DiscoveryConfig struct {
	// Enable the discovery subsystem
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Timeout for a single discovery sweep
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Resolve hostnames for discovered addresses via reverse DNS
	ResolveHostnames bool `yaml:"resolve_hostnames" json:"resolve_hostnames"`

	// DNS server used for reverse lookups (host:port); empty uses
	// the system resolver
	DNSServer string `yaml:"dns_server" json:"dns_server"`
}

// SchedulerConfig holds scheduled session settings
type SchedulerConfig struct {
	// Enable the cron scheduler
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Location for interpreting cron expressions, e.g. "UTC"
	Timezone string `yaml:"timezone" json:"timezone"`

	// Recurring scans registered at startup
	Jobs []ScheduleConfig `yaml:"jobs" json:"jobs"`
}

// ScheduleConfig defines one recurring scan from the config file.
type ScheduleConfig struct {
	Name string `yaml:"name" json:"name"`

	// Cron expression, five fields
	Cron string `yaml:"cron" json:"cron"`

	// Target text, same syntax scan sessions accept
	Targets string `yaml:"targets" json:"targets"`

	Options engine.Options `yaml:"options" json:"options"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			BinaryPath:         "nmap",
			ArtifactDir:        "scan_results",
			MaxConcurrentScans: 3,
			DefaultTiming:      3,
			TerminateGrace:     1 * time.Second,
			AbandonedAfter:     1 * time.Hour,
		},
		Targets: TargetsConfig{
			CIDRCap:  10000,
			RangeCap: 1000,
		},
		Database: db.DefaultConfig(),
		API: APIConfig{
			Enabled:    true,
			ListenAddr: "127.0.0.1",
			Port:       8080,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
			},
			RequestTimeout: 30 * time.Second,
			MaxRequestSize: 1024 * 1024, // 1MB
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Discovery: DiscoveryConfig{
			Enabled:          false,
			Timeout:          2 * time.Minute,
			ResolveHostnames: true,
			DNSServer:        "",
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Timezone: "UTC",
		},
	}
}

// Load loads configuration from a file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Engine.BinaryPath == "" {
		return fmt.Errorf("engine binary path is required")
	}
	if c.Engine.MaxConcurrentScans <= 0 {
		return fmt.Errorf("max concurrent scans must be positive")
	}
	if c.Engine.DefaultTiming < 0 || c.Engine.DefaultTiming > 5 {
		return fmt.Errorf("default timing must be between 0 and 5")
	}
	if c.Engine.TerminateGrace <= 0 {
		return fmt.Errorf("terminate grace must be positive")
	}

	if c.Targets.CIDRCap <= 0 {
		return fmt.Errorf("cidr cap must be positive")
	}
	if c.Targets.RangeCap <= 0 {
		return fmt.Errorf("range cap must be positive")
	}

	if c.API.Enabled {
		if c.API.Port <= 0 || c.API.Port > 65535 {
			return fmt.Errorf("API port must be between 1 and 65535")
		}
		if c.API.ListenAddr == "" {
			return fmt.Errorf("API listen address is required when API is enabled")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Scheduler.Enabled {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			return fmt.Errorf("invalid scheduler timezone: %w", err)
		}
	}

	return nil
}

// GetDatabaseConfig returns the database configuration
func (c *Config) GetDatabaseConfig() db.Config {
	return c.Database
}

// GetAPIAddress returns the full API address
func (c *Config) GetAPIAddress() string {
	return fmt.Sprintf("%s:%d", c.API.ListenAddr, c.API.Port)
}

// IsAPIEnabled returns true if API server is enabled
func (c *Config) IsAPIEnabled() bool {
	return c.API.Enabled
}
