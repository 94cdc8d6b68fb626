package domain

import (
	"errors"
	"testing"
)

func TestNormalizeClampsConfidence(t *testing.T) {
	r := (&AgentResponse{Status: StatusSuccess, Confidence: 1.7}).Normalize()
	if r.Confidence != 1 {
		t.Errorf("Confidence = %v, want clamped to 1", r.Confidence)
	}
	r = (&AgentResponse{Status: StatusSuccess, Confidence: -0.2}).Normalize()
	if r.Confidence != 0 {
		t.Errorf("Confidence = %v, want clamped to 0", r.Confidence)
	}
}

func TestNormalizeStatusSuccessAgreement(t *testing.T) {
	r := (&AgentResponse{Success: true}).Normalize()
	if r.Status != StatusSuccess || !r.Success {
		t.Errorf("got status=%s success=%v", r.Status, r.Success)
	}
	r = (&AgentResponse{Status: StatusFailure, Success: true}).Normalize()
	if r.Success {
		t.Error("success=true disagrees with FAILURE status after Normalize")
	}
}

func TestNormalizeNeverNil(t *testing.T) {
	r := (&AgentResponse{Status: StatusFailure, ProcessingTimeMs: -5}).Normalize()
	if r.Recommendations == nil {
		t.Error("Recommendations is nil")
	}
	if r.Context == nil {
		t.Error("Context is nil")
	}
	if r.ProcessingTimeMs != 0 {
		t.Errorf("ProcessingTimeMs = %d, want 0", r.ProcessingTimeMs)
	}
}

func TestNormalizeBackfillsFailureMessage(t *testing.T) {
	r := (&AgentResponse{Status: StatusFailure}).Normalize()
	if r.ErrorMessage == "" {
		t.Error("FAILURE without a message crossed Normalize unchanged")
	}

	r = (&AgentResponse{
		Status:  StatusFailure,
		Context: map[string]any{"stop_phrase": "STOP: Repository not in scope"},
	}).Normalize()
	if r.ErrorMessage != "" {
		t.Errorf("stop phrase present, message should stay empty, got %q", r.ErrorMessage)
	}
}

func TestNewFailureResponseCarriesCategory(t *testing.T) {
	err := NewDomainError("Manager.ProcessRequest", ErrPermissionDenied, "missing agent:execute")
	r := NewFailureResponse(err)
	if r.Success || r.Status != StatusFailure {
		t.Fatalf("got status=%s success=%v", r.Status, r.Success)
	}
	if r.ErrorMessage == "" {
		t.Fatal("FAILURE response without error message")
	}
	if got := r.Context["error_category"]; got != string(CategoryAuthorization) {
		t.Errorf("error_category = %v, want %s", got, CategoryAuthorization)
	}
}

func TestCategoryMapping(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCategory
	}{
		{ErrInvalidRequest, CategoryValidation},
		{ErrAuthInvalid, CategoryAuthorization},
		{ErrPermissionDenied, CategoryAuthorization},
		{ErrInsecureTransport, CategoryAuthorization},
		{ErrNoAgentAvailable, CategoryNoAgent},
		{ErrLoopDetected, CategoryLoopDetected},
		{ErrTimeout, CategoryTimeout},
		{ErrRateLimited, CategoryRateLimited},
		{ErrAgentInternal, CategoryInternal},
		{errors.New("anything else"), CategoryUnknown},
	}
	for _, tc := range cases {
		if got := Category(WrapOp("op", tc.err)); got != tc.want {
			t.Errorf("Category(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Registry.Register", ErrDuplicate, "id taken")
	want := "Registry.Register: id taken: duplicate"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrDuplicate) {
		t.Error("DomainError does not unwrap to sentinel")
	}
}
