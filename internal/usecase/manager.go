package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"agent-advisor/internal/domain"
	"agent-advisor/internal/infra/logger"
	"agent-advisor/internal/infra/tracer"
)

// AgentResolver is the registry surface the manager needs for fallback
// discovery.
type AgentResolver interface {
	FindBestAgent(req domain.AgentRequest) (domain.Agent, error)
}

// ManagerConfig holds dispatch settings. Zero values get conservative
// defaults in NewManager.
type ManagerConfig struct {
	// DiscoveryTimeout bounds best-agent selection.
	DiscoveryTimeout time.Duration
	// ExecuteTimeout bounds one handler execution.
	ExecuteTimeout time.Duration
	// SecureTransport is the abstract transport-security flag checked when a
	// request sets RequireSecureTransport. It is a contract assertion, not a
	// network operation.
	SecureTransport bool

	// Circuit breaker settings for handler invocation.
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration

	// Optional consultation rate limit (requests per second + burst).
	// Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Default dispatch budgets.
const (
	defaultDiscoveryTimeout   = time.Second
	defaultExecuteTimeout     = 2 * time.Second
	defaultBreakerMaxFailures = 5
	defaultBreakerTimeout     = 30 * time.Second
)

// Manager is the consultation dispatcher: it authorizes, selects, invokes,
// times, and normalizes. ProcessRequest never panics outward and never
// returns nil — every outcome, including internal faults, crosses the
// boundary as AgentResponse data.
type Manager struct {
	cfg      ManagerConfig
	typed    map[string]domain.Agent // exact type-match handlers
	registry AgentResolver
	logger   *slog.Logger
	bus      domain.EventBus     // optional
	audit    domain.AuditLogger  // optional
	limiter  *rate.Limiter       // nil when disabled

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*domain.AgentResponse]

	entropy   *ulid.MonotonicEntropy
	entropyMu sync.Mutex
}

// NewManager creates a Manager. The bus and audit logger may be nil.
func NewManager(cfg ManagerConfig, registry AgentResolver, logger *slog.Logger, bus domain.EventBus, audit domain.AuditLogger) *Manager {
	if cfg.DiscoveryTimeout <= 0 {
		cfg.DiscoveryTimeout = defaultDiscoveryTimeout
	}
	if cfg.ExecuteTimeout <= 0 {
		cfg.ExecuteTimeout = defaultExecuteTimeout
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = defaultBreakerMaxFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = defaultBreakerTimeout
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Manager{
		cfg:      cfg,
		typed:    make(map[string]domain.Agent),
		registry: registry,
		logger:   logger,
		bus:      bus,
		audit:    audit,
		limiter:  limiter,
		breakers: make(map[string]*gobreaker.CircuitBreaker[*domain.AgentResponse]),
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// RegisterType binds an exact request type to a handler. Type-exact matches
// take precedence over registry discovery. Call during bootstrap, before
// the manager starts serving.
func (m *Manager) RegisterType(reqType string, agent domain.Agent) {
	m.typed[domain.NormalizeTag(reqType)] = agent
}

// ProcessRequest runs one consultation round trip. It never panics and the
// returned response is never nil; status/category are deterministic for an
// identical request against an unchanged registry.
func (m *Manager) ProcessRequest(ctx context.Context, req domain.AgentRequest) *domain.AgentResponse {
	start := time.Now()
	requestID := m.newRequestID()
	ctx = domain.ContextWithRequestID(ctx, requestID)

	ctx, span := tracer.StartSpan(ctx, "consultation")
	defer span.End()
	span.SetAttributes(
		tracer.StringAttr("request.id", requestID),
		tracer.StringAttr("request.type", req.Type),
		tracer.StringAttr("request.domain", req.Domain()),
	)

	m.publishEvent(ctx, domain.EventConsultStarted, requestID, map[string]any{
		"type":   req.Type,
		"domain": req.Domain(),
	})

	resp := m.process(ctx, req)
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	resp.Normalize()
	if resp.Context == nil {
		resp.Context = map[string]any{}
	}
	resp.Context["request_id"] = requestID

	m.finish(ctx, span, req, resp, requestID)
	return resp
}

// process runs the dispatch pipeline and returns an un-finalized response.
func (m *Manager) process(ctx context.Context, req domain.AgentRequest) *domain.AgentResponse {
	const op = "Manager.ProcessRequest"

	if m.limiter != nil && !m.limiter.Allow() {
		return domain.NewFailureResponse(domain.NewDomainError(op, domain.ErrRateLimited, "consultation rate limit"))
	}

	if err := validateRequest(req); err != nil {
		return domain.NewFailureResponse(err)
	}

	if err := m.authorize(ctx, req); err != nil {
		return domain.NewFailureResponse(err)
	}

	agent, err := m.resolve(ctx, req)
	if err != nil {
		return domain.NewFailureResponse(err)
	}
	desc := agent.Descriptor()
	trace.SpanFromContext(ctx).SetAttributes(tracer.StringAttr("agent.id", desc.ID))

	execCtx, cancel := context.WithTimeout(ctx, m.cfg.ExecuteTimeout)
	defer cancel()

	resp, err := m.breakerFor(desc.ID).Execute(func() (*domain.AgentResponse, error) {
		return Invoke(execCtx, agent, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = domain.NewDomainError(op, domain.ErrNoAgentAvailable,
				fmt.Sprintf("agent %q circuit open", desc.ID))
		}
		return domain.NewFailureResponse(err)
	}
	if resp.Context == nil {
		resp.Context = map[string]any{}
	}
	resp.Context["agent_id"] = desc.ID
	return resp
}

// validateRequest checks the structural request shape.
func validateRequest(req domain.AgentRequest) error {
	const op = "Manager.ProcessRequest"
	switch {
	case strings.TrimSpace(req.Description) == "":
		return domain.NewDomainError(op, domain.ErrInvalidRequest, "missing description")
	case strings.TrimSpace(req.Type) == "":
		return domain.NewDomainError(op, domain.ErrInvalidRequest, "missing type")
	case req.Context == nil:
		return domain.NewDomainError(op, domain.ErrInvalidRequest, "missing context")
	default:
		return nil
	}
}

// authorize applies the deny-by-default security gate.
func (m *Manager) authorize(ctx context.Context, req domain.AgentRequest) error {
	const op = "Manager.ProcessRequest"

	if !req.Security.HasToken() {
		m.auditEntry(ctx, domain.AuditAuthenticationFailed, req, "missing token")
		return domain.NewDomainError(op, domain.ErrAuthInvalid, "missing or empty token")
	}

	if req.RequireSecureTransport && !m.cfg.SecureTransport {
		m.auditEntry(ctx, domain.AuditAuthorizationFailed, req, "secure transport unavailable")
		return domain.NewDomainError(op, domain.ErrInsecureTransport, "secure transport unavailable")
	}

	required := domain.RequiredPermissions(req.Domain())
	if missing := req.Security.MissingPermissions(required); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, p := range missing {
			names[i] = string(p)
		}
		detail := fmt.Sprintf("insufficient permissions for %s: missing %s",
			req.Domain(), strings.Join(names, ", "))
		m.auditEntry(ctx, domain.AuditAuthorizationFailed, req, detail)
		return domain.NewDomainError(op, domain.ErrPermissionDenied, detail)
	}
	return nil
}

// resolve picks the handler: exact type match first, then scored registry
// discovery under the discovery budget.
func (m *Manager) resolve(ctx context.Context, req domain.AgentRequest) (domain.Agent, error) {
	const op = "Manager.ProcessRequest"

	if agent, ok := m.typed[domain.NormalizeTag(req.Type)]; ok {
		return agent, nil
	}

	discoveryCtx, cancel := context.WithTimeout(ctx, m.cfg.DiscoveryTimeout)
	defer cancel()

	type found struct {
		agent domain.Agent
		err   error
	}
	ch := make(chan found, 1)
	go func() {
		agent, err := m.registry.FindBestAgent(req)
		ch <- found{agent, err}
	}()

	select {
	case <-discoveryCtx.Done():
		return nil, domain.NewDomainError(op, domain.ErrNoAgentAvailable, "discovery budget exhausted")
	case f := <-ch:
		if f.err != nil {
			return nil, domain.NewDomainError(op, domain.ErrNoAgentAvailable,
				fmt.Sprintf("no agent for type %q in domain %q", req.Type, req.Domain()))
		}
		return f.agent, nil
	}
}

// breakerFor returns (creating on first use) the per-agent circuit breaker.
func (m *Manager) breakerFor(agentID string) *gobreaker.CircuitBreaker[*domain.AgentResponse] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, ok := m.breakers[agentID]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[*domain.AgentResponse](gobreaker.Settings{
		Name:        "agent:" + agentID,
		MaxRequests: 1, // one probe in half-open state
		Timeout:     m.cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= m.cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	m.breakers[agentID] = cb
	return cb
}

// finish records the outcome on the span, the audit trail, and the bus.
func (m *Manager) finish(ctx context.Context, span trace.Span, req domain.AgentRequest, resp *domain.AgentResponse, requestID string) {
	category, _ := resp.Context["error_category"].(string)
	agentID, _ := resp.Context["agent_id"].(string)

	span.SetAttributes(
		tracer.StringAttr("response.status", string(resp.Status)),
		tracer.Int64Attr("response.processing_time_ms", resp.ProcessingTimeMs),
		tracer.IntAttr("response.recommendations", len(resp.Recommendations)),
	)

	log := logger.ForRequest(ctx, m.logger)
	if resp.Success {
		log.Info("consultation completed",
			"agent_id", agentID,
			"domain", req.Domain(),
			"processing_time_ms", resp.ProcessingTimeMs,
		)
		tracer.SetOK(span)
		m.auditEntry(ctx, domain.AuditRequestProcessed, req, "")
		m.publishEvent(ctx, domain.EventConsultCompleted, requestID, map[string]any{
			"agent_id":           agentID,
			"domain":             req.Domain(),
			"type":               req.Type,
			"status":             string(resp.Status),
			"processing_time_ms": resp.ProcessingTimeMs,
		})
		return
	}

	log.Warn("consultation failed",
		"agent_id", agentID,
		"domain", req.Domain(),
		"error_category", category,
		"error", resp.ErrorMessage,
	)
	tracer.RecordError(span, errors.New(resp.ErrorMessage))
	m.auditEntry(ctx, domain.AuditRequestFailed, req, resp.ErrorMessage)
	m.publishEvent(ctx, domain.EventConsultFailed, requestID, map[string]any{
		"agent_id":           agentID,
		"domain":             req.Domain(),
		"type":               req.Type,
		"status":             string(resp.Status),
		"error_category":     category,
		"error":              resp.ErrorMessage,
		"processing_time_ms": resp.ProcessingTimeMs,
	})
}

func (m *Manager) auditEntry(ctx context.Context, t domain.AuditEventType, req domain.AgentRequest, detail string) {
	if m.audit == nil {
		return
	}
	event := domain.AuditEvent{
		Type:     t,
		Actor:    req.Security.UserID,
		Resource: req.Domain(),
		Detail:   map[string]string{"type": req.Type},
	}
	if detail != "" {
		event.Detail["reason"] = detail
	}
	if err := m.audit.Log(ctx, event); err != nil {
		m.logger.Error("audit write failed", "error", err)
	}
}

func (m *Manager) publishEvent(ctx context.Context, t domain.EventType, requestID string, payload map[string]any) {
	if m.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	m.bus.Publish(ctx, domain.Event{
		Type:      t,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Payload:   data,
	})
}

func (m *Manager) newRequestID() string {
	m.entropyMu.Lock()
	defer m.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), m.entropy).String()
}
