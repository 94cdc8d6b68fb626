package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"agent-advisor/internal/adapter/agents"
	"agent-advisor/internal/adapter/store"
	"agent-advisor/internal/domain"
	"agent-advisor/internal/infra/config"
	"agent-advisor/internal/infra/logger"
	"agent-advisor/internal/infra/tracer"
	"agent-advisor/internal/security"
	"agent-advisor/internal/usecase"
	"agent-advisor/internal/usecase/eventbus"
	"agent-advisor/internal/usecase/registry"
	"agent-advisor/internal/usecase/story"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "advisor.yaml", "config file path")
		requestPath = flag.String("request", "-", "JSON consultation request file, or - for stdin")
	)
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer shutdownTracer(ctx)

	bus := eventbus.New(log)
	defer bus.Close()

	var audit domain.AuditLogger
	if cfg.Audit.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Audit.Path), 0700); err != nil {
			return fmt.Errorf("audit dir: %w", err)
		}
		fileAudit, err := security.NewFileAuditLogger(cfg.Audit.Path)
		if err != nil {
			return err
		}
		defer fileAudit.Close()
		maxSize, err := security.ParseRetentionMaxSize(cfg.Audit.RetentionSize)
		if err != nil {
			return fmt.Errorf("audit retention: %w", err)
		}
		if cfg.Audit.RetentionMaxAge > 0 || maxSize > 0 {
			fileAudit.SetRetention(security.RetentionPolicy{
				MaxAge:  cfg.Audit.RetentionMaxAge,
				MaxSize: maxSize,
			})
			if removed, err := fileAudit.EnforceRetention(ctx); err != nil {
				log.Warn("audit retention sweep failed", "error", err)
			} else if removed > 0 {
				log.Info("audit retention sweep", "removed", removed)
			}
		}
		audit = fileAudit
	}

	if cfg.Store.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0700); err != nil {
			return fmt.Errorf("store dir: %w", err)
		}
		consultations, err := store.NewSQLiteConsultationStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer consultations.Close()
		recorder := store.Recorder(consultations, func(err error) {
			log.Error("consultation record failed", "error", err)
		})
		bus.SubscribeOutcomes(recorder)
	}

	reg := registry.New(log, bus)
	storyAgent := agents.Story(agents.StoryConfig{
		Repository: cfg.Story.Repository,
		Prefixes:   cfg.Story.Prefixes,
		Limits: story.Thresholds{
			MaxSectionRewrites: cfg.Story.MaxSectionRewrites,
			MaxCriteria:        cfg.Story.MaxCriteria,
			MaxOpenQuestions:   cfg.Story.MaxOpenQuestions,
		},
		Logger: log,
	})
	for _, h := range []*usecase.Handler{
		agents.Architecture(), agents.Implementation(), agents.Testing(),
		agents.Deployment(), agents.Observability(), agents.Security(),
		agents.Performance(), agents.Documentation(), storyAgent,
	} {
		reg.Register(h)
	}

	sweeper := registry.NewSweeper(reg, registry.SweepConfig{
		Interval:      cfg.Registry.SweepInterval,
		ProbeTimeout:  cfg.Registry.ProbeTimeout,
		FailThreshold: cfg.Registry.FailThreshold,
	}, log, bus)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("health sweeper: %w", err)
	}
	defer sweeper.Stop()

	manager := usecase.NewManager(usecase.ManagerConfig{
		DiscoveryTimeout:   cfg.Manager.DiscoveryTimeout,
		ExecuteTimeout:     cfg.Manager.ExecuteTimeout,
		SecureTransport:    cfg.Manager.SecureTransport,
		BreakerMaxFailures: cfg.Manager.BreakerMaxFailures,
		BreakerTimeout:     cfg.Manager.BreakerTimeout,
		RateLimit:          cfg.Manager.RateLimit,
		RateBurst:          cfg.Manager.RateBurst,
	}, reg, log, bus, audit)
	manager.RegisterType(agents.StoryAgentType, storyAgent)

	req, err := readRequest(*requestPath)
	if err != nil {
		return err
	}

	resp := manager.ProcessRequest(ctx, *req)
	log.Info("consultation finished",
		slog.String("status", string(resp.Status)),
		slog.Int64("processing_time_ms", resp.ProcessingTimeMs))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func readRequest(path string) (*domain.AgentRequest, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}

	var req domain.AgentRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return &req, nil
}

func usage() {
	fmt.Fprint(os.Stderr, `advisor - agent consultation dispatcher

USAGE:
    advisor [FLAGS]

Reads one JSON consultation request, dispatches it through the agent
registry, and prints the JSON response.

FLAGS:
    --config PATH     Config file path (default: ./advisor.yaml)
    --request PATH    Request JSON file, or - for stdin (default: -)

CONFIGURATION:
    Environment: ADVISOR_* variables override the config file.
`)
}
