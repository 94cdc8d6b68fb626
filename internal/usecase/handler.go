package usecase

import (
	"context"
	"fmt"
	"time"

	"agent-advisor/internal/domain"
)

// ValidateFunc checks a request before execution. A nil return means the
// request is acceptable.
type ValidateFunc func(req domain.AgentRequest) error

// ExecuteFunc produces the advisory response for an already-validated
// request. The props argument is the request's coerced property map.
type ExecuteFunc func(ctx context.Context, req domain.AgentRequest, props domain.Properties) (*domain.AgentResponse, error)

// Handler composes a descriptor with a validate/execute function pair.
// Concrete advisors are plain function pairs, not subclasses; the template
// behavior lives in Invoke.
type Handler struct {
	Desc       domain.AgentDescriptor
	ValidateFn ValidateFunc
	ExecuteFn  ExecuteFunc
	ProbeFn    func(ctx context.Context) error // optional health probe
}

// Descriptor implements domain.Agent.
func (h *Handler) Descriptor() domain.AgentDescriptor { return h.Desc }

// Validate implements domain.Agent. A nil ValidateFn accepts everything.
func (h *Handler) Validate(req domain.AgentRequest) error {
	if h.ValidateFn == nil {
		return nil
	}
	return h.ValidateFn(req)
}

// Execute implements domain.Agent.
func (h *Handler) Execute(ctx context.Context, req domain.AgentRequest, props domain.Properties) (*domain.AgentResponse, error) {
	if h.ExecuteFn == nil {
		return nil, domain.NewDomainError("Handler.Execute", domain.ErrAgentInternal, "no execute function")
	}
	return h.ExecuteFn(ctx, req, props)
}

// Probe implements domain.HealthProber. Handlers without a ProbeFn are
// passively healthy.
func (h *Handler) Probe(ctx context.Context) error {
	if h.ProbeFn == nil {
		return nil
	}
	return h.ProbeFn(ctx)
}

// Invoke runs the validate-then-execute template for one agent. Validation
// failures short-circuit to a FAILURE response that still carries the time
// spent validating; Execute is never reached for them. Panics and handler
// errors are returned as errors for the caller to classify — they never
// escape as panics.
func Invoke(ctx context.Context, agent domain.Agent, req domain.AgentRequest) (*domain.AgentResponse, error) {
	start := time.Now()

	if err := agent.Validate(req); err != nil {
		resp := domain.NewFailureResponse(
			domain.NewDomainError("Agent.Validate", domain.ErrInvalidRequest, err.Error()))
		resp.ProcessingTimeMs = time.Since(start).Milliseconds()
		return resp, nil
	}

	type result struct {
		resp *domain.AgentResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{nil, domain.NewDomainError(
					"Agent.Execute", domain.ErrAgentInternal, fmt.Sprintf("panic: %v", r))}
			}
		}()
		resp, err := agent.Execute(ctx, req, req.Props())
		done <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		// Cooperative timeout: the handler goroutine keeps running until it
		// observes the context, but the caller gets its FAILURE now.
		return nil, domain.NewDomainError("Agent.Execute", domain.ErrTimeout, "execution budget exhausted")
	case res := <-done:
		if res.err != nil {
			if domain.Category(res.err) != domain.CategoryUnknown {
				return nil, res.err
			}
			return nil, domain.NewDomainError("Agent.Execute", domain.ErrAgentInternal, res.err.Error())
		}
		if res.resp == nil {
			return nil, domain.NewDomainError("Agent.Execute", domain.ErrAgentInternal, "nil response from handler")
		}
		res.resp.ProcessingTimeMs = time.Since(start).Milliseconds()
		return res.resp.Normalize(), nil
	}
}
