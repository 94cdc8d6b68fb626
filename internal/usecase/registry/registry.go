package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"agent-advisor/internal/domain"
)

// entry bundles a registered agent with the registry-owned mutable state.
// The availability flag and probe failure count are mutated only by the
// health sweep, never by handlers.
type entry struct {
	agent domain.Agent
	desc  domain.AgentDescriptor
	seq   uint64
	fails int
}

// snapshot is a point-in-time copy of an entry taken under the read lock.
// Scoring and sorting operate on these copies so upserts and health flips
// can rewrite the live descriptor concurrently.
type snapshot struct {
	agent domain.Agent
	desc  domain.AgentDescriptor
	seq   uint64
}

// Registry is the concurrent-safe store of advisory agents. Reads (lookup,
// scoring) take a snapshot under RLock and score outside the lock, so
// concurrent readers never block each other and writers never corrupt an
// in-flight selection pass.
type Registry struct {
	mu      sync.RWMutex
	agents  map[string]*entry
	nextSeq uint64
	logger  *slog.Logger
	bus     domain.EventBus // optional
}

// New creates an empty Registry. The bus may be nil when no event
// publication is wanted.
func New(logger *slog.Logger, bus domain.EventBus) *Registry {
	return &Registry{
		agents: make(map[string]*entry),
		logger: logger,
		bus:    bus,
	}
}

// Register upserts an agent by descriptor ID. Re-registering an existing ID
// replaces the agent and metadata in place while preserving its original
// registration order, so other entries' ordering is unaffected.
func (r *Registry) Register(agent domain.Agent) {
	desc := agent.Descriptor()
	desc.Domain = domain.NormalizeTag(desc.Domain)

	r.mu.Lock()
	if prev, ok := r.agents[desc.ID]; ok {
		desc.RegisteredAt = prev.desc.RegisteredAt
		desc.Available = prev.desc.Available
		prev.agent = agent
		prev.desc = desc
		r.mu.Unlock()
		r.logger.Info("agent re-registered", "agent_id", desc.ID, "domain", desc.Domain)
		return
	}
	desc.RegisteredAt = time.Now()
	desc.Available = true
	r.nextSeq++
	r.agents[desc.ID] = &entry{agent: agent, desc: desc, seq: r.nextSeq}
	r.mu.Unlock()

	r.logger.Info("agent registered", "agent_id", desc.ID, "domain", desc.Domain)
	r.publish(domain.EventAgentRegistered, map[string]any{
		"agent_id": desc.ID,
		"domain":   desc.Domain,
	})
}

// Resolve returns the registered agent for the given ID.
func (r *Registry) Resolve(agentID string) (domain.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.agents[agentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e.agent, nil
}

// AgentsForDomain returns descriptors whose domain equals the argument,
// followed by descriptors whose capability set contains it, each tier
// ordered by registration time. An empty result is a normal outcome,
// not an error.
func (r *Registry) AgentsForDomain(dom string) []domain.AgentDescriptor {
	dom = domain.NormalizeTag(dom)
	var exact, capable []snapshot

	r.mu.RLock()
	for _, e := range r.agents {
		switch {
		case e.desc.Domain == dom:
			exact = append(exact, snapshot{desc: e.desc, seq: e.seq})
		case e.desc.HasCapability(dom):
			capable = append(capable, snapshot{desc: e.desc, seq: e.seq})
		}
	}
	r.mu.RUnlock()

	bySeq := func(ss []snapshot) {
		sort.Slice(ss, func(i, j int) bool { return ss[i].seq < ss[j].seq })
	}
	bySeq(exact)
	bySeq(capable)

	out := make([]domain.AgentDescriptor, 0, len(exact)+len(capable))
	for _, s := range exact {
		out = append(out, s.desc)
	}
	for _, s := range capable {
		out = append(out, s.desc)
	}
	return out
}

// FindBestAgent scores every available agent against the request and
// returns the best match. Ties break by earliest registration, then
// lexical ID. Returns ErrNoAgentAvailable when every score is zero or
// no agent is available.
func (r *Registry) FindBestAgent(req domain.AgentRequest) (domain.Agent, error) {
	reqDomain := domain.NormalizeTag(req.Domain())
	reqTags := req.Tags()

	r.mu.RLock()
	candidates := make([]snapshot, 0, len(r.agents))
	for _, e := range r.agents {
		if e.desc.Available {
			candidates = append(candidates, snapshot{agent: e.agent, desc: e.desc, seq: e.seq})
		}
	}
	r.mu.RUnlock()

	var best *snapshot
	bestScore := 0
	for i := range candidates {
		c := &candidates[i]
		s := Score(c.desc, reqDomain, reqTags)
		if s == 0 {
			continue
		}
		if best == nil || s > bestScore ||
			(s == bestScore && (c.seq < best.seq ||
				(c.seq == best.seq && c.desc.ID < best.desc.ID))) {
			best, bestScore = c, s
		}
	}
	if best == nil {
		return nil, domain.ErrNoAgentAvailable
	}
	return best.agent, nil
}

// HealthStatus returns an O(n) snapshot of registry health, safe to call
// concurrently with registration and lookups.
func (r *Registry) HealthStatus() domain.RegistryHealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := domain.RegistryHealthStatus{TotalAgents: len(r.agents)}
	for _, e := range r.agents {
		if e.desc.Available {
			status.AvailableAgents++
		} else {
			status.UnhealthyAgents++
		}
	}
	return status
}

// Descriptors returns a snapshot of all registered descriptors ordered by
// registration time.
func (r *Registry) Descriptors() []domain.AgentDescriptor {
	r.mu.RLock()
	ss := make([]snapshot, 0, len(r.agents))
	for _, e := range r.agents {
		ss = append(ss, snapshot{desc: e.desc, seq: e.seq})
	}
	r.mu.RUnlock()

	sort.Slice(ss, func(i, j int) bool { return ss[i].seq < ss[j].seq })
	out := make([]domain.AgentDescriptor, len(ss))
	for i, s := range ss {
		out[i] = s.desc
	}
	return out
}

// recordProbe applies one probe outcome to an agent's failure counter and
// flips availability when the threshold is crossed (or on recovery).
// Returns the new availability and whether it changed.
func (r *Registry) recordProbe(agentID string, ok bool, failThreshold int) (available, flipped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, found := r.agents[agentID]
	if !found {
		return false, false
	}
	if ok {
		e.fails = 0
		if !e.desc.Available {
			e.desc.Available = true
			return true, true
		}
		return true, false
	}
	e.fails++
	if e.desc.Available && e.fails >= failThreshold {
		e.desc.Available = false
		return false, true
	}
	return e.desc.Available, false
}

func (r *Registry) publish(t domain.EventType, payload map[string]any) {
	if r.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	r.bus.Publish(context.Background(), domain.Event{
		Type:      t,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	})
}
