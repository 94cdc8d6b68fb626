package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidateDefaultsPass(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("Validate(Defaults()): %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Manager.DiscoveryTimeout = 0
	cfg.Manager.ExecuteTimeout = -time.Second
	cfg.Registry.FailThreshold = 0
	cfg.Story.MaxCriteria = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Errors) != 4 {
		t.Errorf("expected 4 errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
	if !strings.Contains(err.Error(), "manager.discovery_timeout") {
		t.Errorf("missing discovery_timeout error in %q", err.Error())
	}
}

func TestValidateManager(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero breaker failures", func(c *Config) { c.Manager.BreakerMaxFailures = 0 }, "breaker_max_failures"},
		{"negative breaker timeout", func(c *Config) { c.Manager.BreakerTimeout = -1 }, "breaker_timeout"},
		{"negative rate limit", func(c *Config) { c.Manager.RateLimit = -1 }, "rate_limit"},
		{"rate limit without burst", func(c *Config) { c.Manager.RateLimit = 5; c.Manager.RateBurst = 0 }, "rate_burst"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateRegistryProbeVsSweep(t *testing.T) {
	cfg := Defaults()
	cfg.Registry.ProbeTimeout = cfg.Registry.SweepInterval

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "probe_timeout") {
		t.Errorf("expected probe_timeout error, got %v", err)
	}
}

func TestValidateStoryBlankPrefix(t *testing.T) {
	cfg := Defaults()
	cfg.Story.Prefixes = []string{"[BACKEND]", "  "}

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "story.prefixes[1]") {
		t.Errorf("expected prefix error, got %v", err)
	}
}

func TestValidateLogger(t *testing.T) {
	cfg := Defaults()
	cfg.Logger.Level = "verbose"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for unknown log level")
	}

	cfg = Defaults()
	cfg.Logger.Format = "xml"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for unknown log format")
	}
}

func TestValidateTracerOnlyWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Tracer.Enabled = false
	cfg.Tracer.Exporter = "bogus"
	if err := Validate(cfg); err != nil {
		t.Errorf("disabled tracer should not be validated: %v", err)
	}

	cfg.Tracer.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestValidateAuditAndStorePaths(t *testing.T) {
	cfg := Defaults()
	cfg.Audit.Path = ""
	if err := Validate(cfg); err == nil {
		t.Error("expected error for empty audit path")
	}

	cfg = Defaults()
	cfg.Store.Path = ""
	if err := Validate(cfg); err == nil {
		t.Error("expected error for empty store path")
	}

	cfg = Defaults()
	cfg.Audit.Enabled = false
	cfg.Audit.Path = ""
	cfg.Store.Enabled = false
	cfg.Store.Path = ""
	if err := Validate(cfg); err != nil {
		t.Errorf("disabled audit/store should not require paths: %v", err)
	}
}
