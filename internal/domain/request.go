package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// Properties is the weakly-typed context payload supplied by callers.
// Values may be primitives, nested maps, or lists. Accessors coerce
// defensively: a value of unexpected shape yields the zero value rather
// than a panic, so malformed payloads degrade instead of crashing handlers.
type Properties map[string]any

// String returns the value for key as a string, or "" when absent or
// not a string.
func (p Properties) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// StringList returns the value for key as a string slice. Lists of mixed
// element types keep only the string elements; anything else yields an
// empty slice.
func (p Properties) StringList(key string) []string {
	switch v := p[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

// Int returns the value for key as an int, accepting the numeric types
// JSON and YAML decoders produce. Non-numeric values yield 0.
func (p Properties) Int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Bool returns the value for key as a bool, or false when absent or
// not a bool.
func (p Properties) Bool(key string) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return false
}

// Map returns the value for key as a nested Properties map, or an empty
// map when absent or not a map.
func (p Properties) Map(key string) Properties {
	switch v := p[key].(type) {
	case Properties:
		return v
	case map[string]any:
		return Properties(v)
	default:
		return Properties{}
	}
}

// AgentContext carries the domain classification and caller-supplied
// properties for one consultation. Immutable once built.
type AgentContext struct {
	Domain     string     `json:"domain"`
	Properties Properties `json:"properties,omitempty"`
}

// AgentRequest is the uniform inbound consultation request.
type AgentRequest struct {
	Description            string          `json:"description"`
	Type                   string          `json:"type"`
	Context                *AgentContext   `json:"context"`
	Security               SecurityContext `json:"security_context"`
	RequireSecureTransport bool            `json:"require_secure_transport"`
}

// Props returns the request's property map, never nil.
func (r AgentRequest) Props() Properties {
	if r.Context == nil || r.Context.Properties == nil {
		return Properties{}
	}
	return r.Context.Properties
}

// Domain returns the request's context domain, or "" when no context is set.
func (r AgentRequest) Domain() string {
	if r.Context == nil {
		return ""
	}
	return r.Context.Domain
}

// Tags derives the normalized capability tags the caller is asking for:
// the request type plus any "tags" context property.
func (r AgentRequest) Tags() map[string]struct{} {
	tags := append([]string{r.Type}, r.Props().StringList("tags")...)
	return NormalizeTags(tags)
}

// SecurityContext is the immutable credential bundle attached to every
// request.
type SecurityContext struct {
	Token       string
	UserID      string
	Roles       map[string]struct{}
	Permissions map[string]struct{}
	ServiceID   string
	ServiceType string
}

// HasToken reports whether the context carries a non-blank token.
func (s SecurityContext) HasToken() bool {
	return strings.TrimSpace(s.Token) != ""
}

// HasPermission reports whether the given permission was granted.
func (s SecurityContext) HasPermission(perm Permission) bool {
	_, ok := s.Permissions[string(perm)]
	return ok
}

// MissingPermissions returns the subset of required permissions the
// context does not carry, in declaration order.
func (s SecurityContext) MissingPermissions(required []Permission) []Permission {
	var missing []Permission
	for _, perm := range required {
		if !s.HasPermission(perm) {
			missing = append(missing, perm)
		}
	}
	return missing
}

// securityContextWire is the JSON shape: roles and permissions travel as
// string lists and land in sets.
type securityContextWire struct {
	Token       string   `json:"token"`
	UserID      string   `json:"user_id"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	ServiceID   string   `json:"service_id,omitempty"`
	ServiceType string   `json:"service_type,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s SecurityContext) MarshalJSON() ([]byte, error) {
	wire := securityContextWire{
		Token:       s.Token,
		UserID:      s.UserID,
		Roles:       sortedKeys(s.Roles),
		Permissions: sortedKeys(s.Permissions),
		ServiceID:   s.ServiceID,
		ServiceType: s.ServiceType,
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SecurityContext) UnmarshalJSON(data []byte) error {
	var wire securityContextWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*s = SecurityContext{
		Token:       wire.Token,
		UserID:      wire.UserID,
		Roles:       NormalizeTags(wire.Roles),
		Permissions: NormalizeTags(wire.Permissions),
		ServiceID:   wire.ServiceID,
		ServiceType: wire.ServiceType,
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
