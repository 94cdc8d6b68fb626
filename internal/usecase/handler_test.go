package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-advisor/internal/domain"
)

func testRequest() domain.AgentRequest {
	return domain.AgentRequest{
		Description: "review the retry policy",
		Type:        "consultation",
		Context:     &domain.AgentContext{Domain: domain.DomainImplementation},
	}
}

func TestInvokeValidationShortCircuits(t *testing.T) {
	var executed atomic.Bool
	h := &Handler{
		Desc: domain.AgentDescriptor{ID: "strict"},
		ValidateFn: func(domain.AgentRequest) error {
			return fmt.Errorf("description too vague")
		},
		ExecuteFn: func(context.Context, domain.AgentRequest, domain.Properties) (*domain.AgentResponse, error) {
			executed.Store(true)
			return domain.NewSuccessResponse("x", 1), nil
		},
	}

	resp, err := Invoke(context.Background(), h, testRequest())

	require.NoError(t, err, "validation rejections are data, not errors")
	require.False(t, resp.Success)
	assert.Equal(t, string(domain.CategoryValidation), resp.Context["error_category"])
	assert.Contains(t, resp.ErrorMessage, "description too vague")
	assert.False(t, executed.Load(), "execute must not run after a validation failure")
	assert.GreaterOrEqual(t, resp.ProcessingTimeMs, int64(0))
}

func TestInvokeSuccessStampsTiming(t *testing.T) {
	h := &Handler{
		Desc: domain.AgentDescriptor{ID: "ok"},
		ExecuteFn: func(context.Context, domain.AgentRequest, domain.Properties) (*domain.AgentResponse, error) {
			time.Sleep(5 * time.Millisecond)
			return domain.NewSuccessResponse("done", 0.7), nil
		},
	}

	resp, err := Invoke(context.Background(), h, testRequest())

	require.NoError(t, err)
	require.True(t, resp.Success)
	assert.GreaterOrEqual(t, resp.ProcessingTimeMs, int64(5))
}

func TestInvokePanicBecomesInternalError(t *testing.T) {
	h := &Handler{
		Desc: domain.AgentDescriptor{ID: "panicker"},
		ExecuteFn: func(context.Context, domain.AgentRequest, domain.Properties) (*domain.AgentResponse, error) {
			panic("boom")
		},
	}

	var resp *domain.AgentResponse
	var err error
	require.NotPanics(t, func() {
		resp, err = Invoke(context.Background(), h, testRequest())
	})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, domain.ErrAgentInternal))
	assert.Contains(t, err.Error(), "boom")
}

func TestInvokeNilResponseIsInternalError(t *testing.T) {
	h := &Handler{
		Desc: domain.AgentDescriptor{ID: "empty"},
		ExecuteFn: func(context.Context, domain.AgentRequest, domain.Properties) (*domain.AgentResponse, error) {
			return nil, nil
		},
	}

	_, err := Invoke(context.Background(), h, testRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAgentInternal))
}

func TestInvokeTimeout(t *testing.T) {
	h := &Handler{
		Desc: domain.AgentDescriptor{ID: "slow"},
		ExecuteFn: func(ctx context.Context, _ domain.AgentRequest, _ domain.Properties) (*domain.AgentResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Invoke(ctx, h, testRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTimeout))
}

func TestInvokeClassifiedErrorsPassThrough(t *testing.T) {
	wrapped := domain.NewDomainError("backend", domain.ErrLoopDetected, "checkpoint 2")
	h := &Handler{
		Desc: domain.AgentDescriptor{ID: "loopy"},
		ExecuteFn: func(context.Context, domain.AgentRequest, domain.Properties) (*domain.AgentResponse, error) {
			return nil, wrapped
		},
	}

	_, err := Invoke(context.Background(), h, testRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLoopDetected), "classified errors must keep their category")
}

func TestInvokeUnclassifiedErrorBecomesInternal(t *testing.T) {
	h := &Handler{
		Desc: domain.AgentDescriptor{ID: "plain"},
		ExecuteFn: func(context.Context, domain.AgentRequest, domain.Properties) (*domain.AgentResponse, error) {
			return nil, errors.New("socket closed")
		},
	}

	_, err := Invoke(context.Background(), h, testRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAgentInternal))
}

func TestHandlerDefaults(t *testing.T) {
	h := &Handler{Desc: domain.AgentDescriptor{ID: "bare"}}

	assert.NoError(t, h.Validate(testRequest()), "nil ValidateFn accepts everything")
	assert.NoError(t, h.Probe(context.Background()), "nil ProbeFn is passively healthy")

	_, err := h.Execute(context.Background(), testRequest(), domain.Properties{})
	assert.Error(t, err, "nil ExecuteFn is a wiring fault")
}
