package domain

import (
	"context"
	"time"
)

// AuditEventType classifies audit log entries.
type AuditEventType string

const (
	AuditAuthenticationFailed AuditEventType = "authentication_failed"
	AuditAuthorizationFailed  AuditEventType = "authorization_failed"
	AuditRequestProcessed     AuditEventType = "request_processed"
	AuditRequestFailed        AuditEventType = "request_failed"
	AuditAgentRegistered      AuditEventType = "agent_registered"
	AuditHealthChanged        AuditEventType = "health_changed"
)

// AuditEvent represents a single auditable action.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      AuditEventType    `json:"type"`
	Detail    map[string]string `json:"detail"`

	Actor    string `json:"actor,omitempty"`
	Resource string `json:"resource,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
}

// AuditLogger records auditable actions for the consultation trail.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent) error
}
