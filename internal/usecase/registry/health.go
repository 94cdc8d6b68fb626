package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"agent-advisor/internal/domain"
)

// SweepConfig controls the periodic health sweep.
type SweepConfig struct {
	// Interval between sweeps.
	Interval time.Duration
	// ProbeTimeout bounds each individual probe so a hung agent never
	// stalls in-flight consultations.
	ProbeTimeout time.Duration
	// FailThreshold is the number of consecutive failed probes before an
	// agent is marked unavailable.
	FailThreshold int
}

// Default sweep settings.
const (
	defaultSweepInterval = 30 * time.Second
	defaultProbeTimeout  = 500 * time.Millisecond
	defaultFailThreshold = 3
)

// Sweeper periodically probes registered agents and flips their
// availability. Agents that do not implement domain.HealthProber are
// treated as passively healthy.
type Sweeper struct {
	reg    *Registry
	cfg    SweepConfig
	cron   *cron.Cron
	logger *slog.Logger
	bus    domain.EventBus // optional
}

// NewSweeper creates a Sweeper over reg. Zero config fields get defaults.
func NewSweeper(reg *Registry, cfg SweepConfig, logger *slog.Logger, bus domain.EventBus) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultSweepInterval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.FailThreshold <= 0 {
		cfg.FailThreshold = defaultFailThreshold
	}
	return &Sweeper{
		reg:    reg,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger,
		bus:    bus,
	}
}

// Start schedules the sweep on its own cron goroutine.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("@every "+s.cfg.Interval.String(), s.Sweep)
	if err != nil {
		return domain.WrapOp("Sweeper.Start", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep probes every registered agent once. Exported so bootstrap code can
// run an immediate sweep before serving.
func (s *Sweeper) Sweep() {
	for _, desc := range s.reg.Descriptors() {
		s.probeOne(desc.ID)
	}
}

func (s *Sweeper) probeOne(agentID string) {
	agent, err := s.reg.Resolve(agentID)
	if err != nil {
		return // unregistered between snapshot and probe
	}

	ok := true
	if prober, can := agent.(domain.HealthProber); can {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ProbeTimeout)
		ok = prober.Probe(ctx) == nil
		cancel()
	}

	available, flipped := s.reg.recordProbe(agentID, ok, s.cfg.FailThreshold)
	if !flipped {
		return
	}

	s.logger.Warn("agent availability changed", "agent_id", agentID, "available", available)
	if s.bus != nil {
		payload, err := json.Marshal(map[string]any{
			"agent_id":  agentID,
			"available": available,
		})
		if err != nil {
			return
		}
		s.bus.Publish(context.Background(), domain.Event{
			Type:      domain.EventAgentHealthChanged,
			Timestamp: time.Now().UTC(),
			Payload:   payload,
		})
	}
}
