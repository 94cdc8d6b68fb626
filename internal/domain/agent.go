package domain

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Canonical advisory domains. The registry must always hold at least one
// available agent per major domain.
const (
	DomainArchitecture   = "architecture"
	DomainImplementation = "implementation"
	DomainTesting        = "testing"
	DomainDeployment     = "deployment"
	DomainObservability  = "observability"
	DomainSecurity       = "security"
	DomainPerformance    = "performance"
	DomainDocumentation  = "documentation"
)

// MajorDomains lists every canonical domain for coverage checks.
var MajorDomains = []string{
	DomainArchitecture, DomainImplementation, DomainTesting,
	DomainDeployment, DomainObservability, DomainSecurity,
	DomainPerformance, DomainDocumentation,
}

// AgentDescriptor is the static capability metadata for one advisory handler.
type AgentDescriptor struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Domain       string              `json:"domain"`
	Capabilities map[string]struct{} `json:"-"`
	Available    bool                `json:"available"`
	RegisteredAt time.Time           `json:"registered_at"`
}

// CapabilityList returns the capability tags sorted lexically.
func (d AgentDescriptor) CapabilityList() []string {
	tags := make([]string, 0, len(d.Capabilities))
	for tag := range d.Capabilities {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// HasCapability reports whether the descriptor carries the given tag.
func (d AgentDescriptor) HasCapability(tag string) bool {
	_, ok := d.Capabilities[NormalizeTag(tag)]
	return ok
}

// NormalizeTag canonicalizes a capability tag for set membership.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeTags builds a normalized tag set, dropping empty entries.
func NormalizeTags(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if n := NormalizeTag(t); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Agent is a stateless advisory handler. Validate runs before Execute;
// a non-nil validation error means Execute is never invoked for that request.
type Agent interface {
	Descriptor() AgentDescriptor
	Validate(req AgentRequest) error
	Execute(ctx context.Context, req AgentRequest, props Properties) (*AgentResponse, error)
}

// HealthProber is implemented by agents that support active health probes.
// Probe must honor the context deadline; a slow probe is a failed probe.
type HealthProber interface {
	Probe(ctx context.Context) error
}

// RegistryHealthStatus is an O(n) snapshot of registry health.
type RegistryHealthStatus struct {
	TotalAgents     int `json:"total_agents"`
	AvailableAgents int `json:"available_agents"`
	UnhealthyAgents int `json:"unhealthy_agents"`
}
