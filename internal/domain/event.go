package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventConsultStarted   EventType = "consultation.started"
	EventConsultCompleted EventType = "consultation.completed"
	EventConsultFailed    EventType = "consultation.failed"

	EventAgentRegistered    EventType = "agent.registered"
	EventAgentHealthChanged EventType = "agent.health_changed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
}

// ConsultationRecord is the persisted trace of one consultation round trip.
type ConsultationRecord struct {
	ID               string    `json:"id"`
	AgentID          string    `json:"agent_id"`
	Domain           string    `json:"domain"`
	Type             string    `json:"type"`
	Status           Status    `json:"status"`
	ErrorCategory    string    `json:"error_category,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// ConsultationStore persists consultation records. Implementations are
// opaque collaborators: the core only needs create and read-by-id.
type ConsultationStore interface {
	Save(ctx context.Context, rec *ConsultationRecord) error
	Get(ctx context.Context, id string) (*ConsultationRecord, error)
}
