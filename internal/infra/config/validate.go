package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateManager(cfg, ve)
	validateRegistry(cfg, ve)
	validateStory(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateAudit(cfg, ve)
	validateStore(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateManager(cfg *Config, ve *ValidationError) {
	if cfg.Manager.DiscoveryTimeout <= 0 {
		ve.Add("manager.discovery_timeout must be > 0")
	}
	if cfg.Manager.ExecuteTimeout <= 0 {
		ve.Add("manager.execute_timeout must be > 0")
	}
	if cfg.Manager.BreakerMaxFailures == 0 {
		ve.Add("manager.breaker_max_failures must be > 0")
	}
	if cfg.Manager.BreakerTimeout <= 0 {
		ve.Add("manager.breaker_timeout must be > 0")
	}
	if cfg.Manager.RateLimit < 0 {
		ve.Add("manager.rate_limit must be >= 0")
	}
	if cfg.Manager.RateLimit > 0 && cfg.Manager.RateBurst <= 0 {
		ve.Add("manager.rate_burst must be > 0 when rate limiting is enabled")
	}
}

func validateRegistry(cfg *Config, ve *ValidationError) {
	if cfg.Registry.SweepInterval <= 0 {
		ve.Add("registry.sweep_interval must be > 0")
	}
	if cfg.Registry.ProbeTimeout <= 0 {
		ve.Add("registry.probe_timeout must be > 0")
	}
	if cfg.Registry.ProbeTimeout >= cfg.Registry.SweepInterval {
		ve.Add("registry.probe_timeout must be shorter than registry.sweep_interval")
	}
	if cfg.Registry.FailThreshold <= 0 {
		ve.Add("registry.fail_threshold must be > 0")
	}
}

func validateStory(cfg *Config, ve *ValidationError) {
	if cfg.Story.MaxSectionRewrites <= 0 {
		ve.Add("story.max_section_rewrites must be > 0")
	}
	if cfg.Story.MaxCriteria <= 0 {
		ve.Add("story.max_criteria must be > 0")
	}
	if cfg.Story.MaxOpenQuestions <= 0 {
		ve.Add("story.max_open_questions must be > 0")
	}
	for i, p := range cfg.Story.Prefixes {
		if strings.TrimSpace(p) == "" {
			ve.Add("story.prefixes[%d] must not be blank", i)
		}
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json", "":
	default:
		ve.Add("logger.format %q is not one of text, json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q is not one of stdout, noop", cfg.Tracer.Exporter)
	}
}

func validateAudit(cfg *Config, ve *ValidationError) {
	if !cfg.Audit.Enabled {
		return
	}
	if cfg.Audit.Path == "" {
		ve.Add("audit.path must not be empty when audit is enabled")
	}
	if cfg.Audit.RetentionMaxAge < 0 {
		ve.Add("audit.retention_max_age must be >= 0")
	}
}

func validateStore(cfg *Config, ve *ValidationError) {
	if cfg.Store.Enabled && cfg.Store.Path == "" {
		ve.Add("store.path must not be empty when the store is enabled")
	}
}
