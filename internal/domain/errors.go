package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the consultation core. Every failure that crosses the
// manager boundary maps to exactly one of these so callers can branch on
// category without parsing free text.
var (
	ErrInvalidRequest    = fmt.Errorf("invalid request")
	ErrAuthInvalid       = fmt.Errorf("authentication failed")
	ErrPermissionDenied  = fmt.Errorf("insufficient permissions")
	ErrInsecureTransport = fmt.Errorf("secure transport required")
	ErrNoAgentAvailable  = fmt.Errorf("no agent available")
	ErrAgentInternal     = fmt.Errorf("agent internal failure")
	ErrLoopDetected      = fmt.Errorf("processing loop detected")
	ErrTimeout           = fmt.Errorf("operation timed out")
	ErrRateLimited       = fmt.Errorf("rate limit exceeded")
	ErrNotFound          = fmt.Errorf("not found")
	ErrDuplicate         = fmt.Errorf("duplicate")
	ErrStoreFailure      = fmt.Errorf("consultation store failure")
	ErrAuditWrite        = fmt.Errorf("audit log write failed")
)

// ErrorCategory is a machine-parseable failure classification.
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryAuthorization ErrorCategory = "authorization"
	CategoryNoAgent       ErrorCategory = "no_agent_available"
	CategoryInternal      ErrorCategory = "internal"
	CategoryLoopDetected  ErrorCategory = "loop_detected"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryRateLimited   ErrorCategory = "rate_limited"
	CategoryUnknown       ErrorCategory = "unknown"
)

// Category maps an error chain to its stable failure category.
func Category(err error) ErrorCategory {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return CategoryValidation
	case errors.Is(err, ErrAuthInvalid),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrInsecureTransport):
		return CategoryAuthorization
	case errors.Is(err, ErrNoAgentAvailable):
		return CategoryNoAgent
	case errors.Is(err, ErrLoopDetected):
		return CategoryLoopDetected
	case errors.Is(err, ErrTimeout):
		return CategoryTimeout
	case errors.Is(err, ErrRateLimited):
		return CategoryRateLimited
	case errors.Is(err, ErrAgentInternal):
		return CategoryInternal
	default:
		return CategoryUnknown
	}
}

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g. "Manager.ProcessRequest")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a DomainError from an operation, sentinel, and detail.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
