package domain

// Permission represents a granular action that can be authorized.
type Permission string

const (
	PermAgentConsult   Permission = "agent:consult"
	PermAgentExecute   Permission = "agent:execute"
	PermAgentRegister  Permission = "agent:register"
	PermSecurityAccess Permission = "security:access"
	PermAuditRead      Permission = "audit:read"
	PermAuditManage    Permission = "audit:manage"
)

// baseConsultPermissions are required for every consultation regardless of
// target domain.
var baseConsultPermissions = []Permission{PermAgentConsult, PermAgentExecute}

// domainPermissions lists extra permissions a domain demands on top of the
// base set. Deny-by-default: domains not listed here need only the base set.
var domainPermissions = map[string][]Permission{
	DomainSecurity: {PermSecurityAccess},
}

// RequiredPermissions returns the statically-declared permission set for
// consulting the given domain, base permissions first.
func RequiredPermissions(domain string) []Permission {
	extra := domainPermissions[domain]
	required := make([]Permission, 0, len(baseConsultPermissions)+len(extra))
	required = append(required, baseConsultPermissions...)
	required = append(required, extra...)
	return required
}
