// Package config loads and validates the advisor configuration from YAML,
// with environment overrides and fail-fast validation at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Manager  ManagerConfig  `yaml:"manager"`
	Registry RegistryConfig `yaml:"registry"`
	Story    StoryConfig    `yaml:"story"`
	Logger   LoggerConfig   `yaml:"logger"`
	Tracer   TracerConfig   `yaml:"tracer"`
	Audit    AuditConfig    `yaml:"audit"`
	Store    StoreConfig    `yaml:"store"`
}

// ManagerConfig holds dispatcher settings.
type ManagerConfig struct {
	DiscoveryTimeout   time.Duration `yaml:"discovery_timeout"`
	ExecuteTimeout     time.Duration `yaml:"execute_timeout"`
	SecureTransport    bool          `yaml:"secure_transport"`
	BreakerMaxFailures uint32        `yaml:"breaker_max_failures"`
	BreakerTimeout     time.Duration `yaml:"breaker_timeout"`
	RateLimit          float64       `yaml:"rate_limit"` // requests per second; 0 = unlimited
	RateBurst          int           `yaml:"rate_burst"`
}

// RegistryConfig holds registry and health sweep settings.
type RegistryConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	FailThreshold int           `yaml:"fail_threshold"`
}

// StoryConfig scopes the story strengthening agent.
type StoryConfig struct {
	Repository         string   `yaml:"repository"`
	Prefixes           []string `yaml:"prefixes"`
	MaxSectionRewrites int      `yaml:"max_section_rewrites"`
	MaxCriteria        int      `yaml:"max_criteria"`
	MaxOpenQuestions   int      `yaml:"max_open_questions"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Path            string        `yaml:"path"`
	RetentionMaxAge time.Duration `yaml:"retention_max_age"`  // 0 = keep forever
	RetentionSize   string        `yaml:"retention_max_size"` // e.g. "100MB"; "" = no limit
}

// StoreConfig holds consultation store settings.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Manager: ManagerConfig{
			DiscoveryTimeout:   time.Second,
			ExecuteTimeout:     2 * time.Second,
			SecureTransport:    true,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
			RateLimit:          0,
			RateBurst:          1,
		},
		Registry: RegistryConfig{
			SweepInterval: 30 * time.Second,
			ProbeTimeout:  500 * time.Millisecond,
			FailThreshold: 3,
		},
		Story: StoryConfig{
			MaxSectionRewrites: 2,
			MaxCriteria:        25,
			MaxOpenQuestions:   10,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Audit: AuditConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "audit.jsonl"),
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "consultations.db"),
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".agent-advisor")
	}
	return ".agent-advisor"
}

// Load reads the config at path, applies environment overrides, and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides lets the environment win over the config file for the
// settings that differ per deployment.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ADVISOR_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("ADVISOR_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("ADVISOR_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("ADVISOR_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("ADVISOR_SECURE_TRANSPORT"); v != "" {
		cfg.Manager.SecureTransport = v == "true"
	}
	if v := os.Getenv("ADVISOR_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Manager.RateLimit = f
		}
	}
	if v := os.Getenv("ADVISOR_AUDIT_PATH"); v != "" {
		cfg.Audit.Path = v
	}
	if v := os.Getenv("ADVISOR_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("ADVISOR_STORY_REPOSITORY"); v != "" {
		cfg.Story.Repository = v
	}
	if v := os.Getenv("ADVISOR_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Registry.SweepInterval = d
		}
	}
}

// validatePermissions rejects config files readable or writable beyond the
// owner plus world-read. Allows 0600 and 0644.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
