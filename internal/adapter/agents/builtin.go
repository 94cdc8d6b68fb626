// Package agents provides the built-in advisory handlers registered at
// bootstrap. Each handler is a validate/execute function pair over a
// capability descriptor; none of them hold mutable state.
package agents

import (
	"context"
	"fmt"
	"strings"

	"agent-advisor/internal/domain"
	"agent-advisor/internal/usecase"
)

func descriptor(id, name, dom string, caps ...string) domain.AgentDescriptor {
	return domain.AgentDescriptor{
		ID:           id,
		Name:         name,
		Domain:       dom,
		Capabilities: domain.NormalizeTags(caps),
	}
}

// requireDescription is the baseline validation shared by the built-ins.
func requireDescription(req domain.AgentRequest) error {
	if strings.TrimSpace(req.Description) == "" {
		return fmt.Errorf("request description is empty")
	}
	return nil
}

// advise builds a deterministic advisory response: a headline referencing
// the request, followed by the handler's recommendations.
func advise(req domain.AgentRequest, confidence float64, headline string, recommendations ...string) *domain.AgentResponse {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nRequest: %s\n", headline, strings.TrimSpace(req.Description))
	for i, r := range recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return domain.NewSuccessResponse(b.String(), confidence, recommendations...)
}

// Architecture advises on service decomposition and component boundaries.
func Architecture() *usecase.Handler {
	return &usecase.Handler{
		Desc:       descriptor("advisor-architecture", "Architecture Advisor", domain.DomainArchitecture, "design", "scalability", "boundaries"),
		ValidateFn: requireDescription,
		ExecuteFn: func(_ context.Context, req domain.AgentRequest, props domain.Properties) (*domain.AgentResponse, error) {
			recs := []string{
				"Model each bounded context as its own package with an explicit public surface.",
				"Keep synchronous call chains at most two services deep; fan out through events beyond that.",
				"Document every cross-service contract next to the code that owns it.",
			}
			if svc := props.String("service"); svc != "" {
				recs = append(recs, fmt.Sprintf("Record the decision drivers for %s in an ADR before implementation starts.", svc))
			}
			return advise(req, 0.85, "Architecture review", recs...), nil
		},
	}
}

// Implementation advises on coding and code-review concerns.
func Implementation() *usecase.Handler {
	return &usecase.Handler{
		Desc:       descriptor("advisor-implementation", "Implementation Advisor", domain.DomainImplementation, "coding", "review", "refactoring"),
		ValidateFn: requireDescription,
		ExecuteFn: func(_ context.Context, req domain.AgentRequest, props domain.Properties) (*domain.AgentResponse, error) {
			recs := []string{
				"Return errors with enough operation context to locate the failure from the log line alone.",
				"Guard every shared map or slice behind a mutex or a channel owner, never both.",
				"Split any function that mixes decision logic with I/O so the decisions are unit-testable.",
			}
			if lang := props.String("language"); lang != "" && !strings.EqualFold(lang, "go") {
				recs = append(recs, fmt.Sprintf("Map the idioms above to their %s equivalents before applying them.", lang))
			}
			return advise(req, 0.8, "Implementation guidance", recs...), nil
		},
	}
}

// Testing advises on test strategy and coverage.
func Testing() *usecase.Handler {
	return &usecase.Handler{
		Desc:       descriptor("advisor-testing", "Testing Advisor", domain.DomainTesting, "unit", "integration", "coverage"),
		ValidateFn: requireDescription,
		ExecuteFn: func(_ context.Context, req domain.AgentRequest, _ domain.Properties) (*domain.AgentResponse, error) {
			return advise(req, 0.8, "Test strategy",
				"Cover every error branch of the public API before adding happy-path permutations.",
				"Pin concurrency-sensitive behavior with a race-enabled stress test.",
				"Prefer table-driven cases over copied test bodies once a third variant appears.",
			), nil
		},
	}
}

// Deployment advises on release and rollout concerns.
func Deployment() *usecase.Handler {
	return &usecase.Handler{
		Desc:       descriptor("advisor-deployment", "Deployment Advisor", domain.DomainDeployment, "release", "rollout", "ci"),
		ValidateFn: requireDescription,
		ExecuteFn: func(_ context.Context, req domain.AgentRequest, props domain.Properties) (*domain.AgentResponse, error) {
			recs := []string{
				"Ship behind a flag and ramp traffic by percentage, not by environment.",
				"Make rollback a single command that needs no state reconstruction.",
				"Fail the pipeline on any migration that cannot run against the previous binary.",
			}
			if env := props.String("environment"); env != "" {
				recs = append(recs, fmt.Sprintf("Verify the %s config matches the manifest committed for this release.", env))
			}
			return advise(req, 0.75, "Deployment review", recs...), nil
		},
	}
}

// Observability advises on logging, metrics, and tracing.
func Observability() *usecase.Handler {
	return &usecase.Handler{
		Desc:       descriptor("advisor-observability", "Observability Advisor", domain.DomainObservability, "logging", "metrics", "tracing"),
		ValidateFn: requireDescription,
		ExecuteFn: func(_ context.Context, req domain.AgentRequest, _ domain.Properties) (*domain.AgentResponse, error) {
			return advise(req, 0.8, "Observability guidance",
				"Attach the request ID to every log line and span in the call path.",
				"Alert on symptoms users feel, not on internal counters.",
				"Log state transitions at info; reserve warn for conditions needing human follow-up.",
			), nil
		},
	}
}

// Security advises on authentication, authorization, and hardening. Its
// domain adds the security:access permission requirement at the gate.
func Security() *usecase.Handler {
	return &usecase.Handler{
		Desc:       descriptor("advisor-security", "Security Advisor", domain.DomainSecurity, "auth", "secrets", "hardening"),
		ValidateFn: requireDescription,
		ExecuteFn: func(_ context.Context, req domain.AgentRequest, props domain.Properties) (*domain.AgentResponse, error) {
			recs := []string{
				"Deny by default; every permission grant must name the operation it unlocks.",
				"Keep secrets out of config files; load them from the environment at startup.",
				"Log authorization failures with the actor and the missing permission, never the token.",
			}
			if props.Bool("public_facing") {
				recs = append(recs,
					"Rate-limit unauthenticated endpoints before they reach the dispatcher.",
					"Treat every inbound field as attacker-controlled until validated.")
			}
			return advise(req, 0.9, "Security review", recs...), nil
		},
	}
}

// Performance advises on latency and resource usage.
func Performance() *usecase.Handler {
	return &usecase.Handler{
		Desc:       descriptor("advisor-performance", "Performance Advisor", domain.DomainPerformance, "latency", "profiling", "capacity"),
		ValidateFn: requireDescription,
		ExecuteFn: func(_ context.Context, req domain.AgentRequest, props domain.Properties) (*domain.AgentResponse, error) {
			recs := []string{
				"Profile before optimizing; never trade clarity for an unmeasured win.",
				"Set a latency budget per hop and test against it in CI.",
				"Bound every queue and pool so overload degrades instead of collapsing.",
			}
			if target := props.String("latency_target"); target != "" {
				recs = append(recs, fmt.Sprintf("Validate the %s target with a load test at twice the expected peak.", target))
			}
			return advise(req, 0.75, "Performance review", recs...), nil
		},
	}
}

// Documentation advises on docs and API reference quality.
func Documentation() *usecase.Handler {
	return &usecase.Handler{
		Desc:       descriptor("advisor-documentation", "Documentation Advisor", domain.DomainDocumentation, "readme", "api-docs", "runbooks"),
		ValidateFn: requireDescription,
		ExecuteFn: func(_ context.Context, req domain.AgentRequest, _ domain.Properties) (*domain.AgentResponse, error) {
			return advise(req, 0.7, "Documentation guidance",
				"Open every document with what the reader can do after reading it.",
				"Keep runbooks next to the alerts that reference them.",
				"Delete docs that restate the code; document the constraints the code cannot show.",
			), nil
		},
	}
}

// All returns every built-in handler, one per major domain plus the story
// strengthening agent. Bootstrap registers the whole slice.
func All() []*usecase.Handler {
	return []*usecase.Handler{
		Architecture(),
		Implementation(),
		Testing(),
		Deployment(),
		Observability(),
		Security(),
		Performance(),
		Documentation(),
		Story(StoryConfig{}),
	}
}
