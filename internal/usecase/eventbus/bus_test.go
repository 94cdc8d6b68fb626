package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"agent-advisor/internal/domain"
)

func newTestBus() *Bus {
	return New(slog.Default())
}

func newEvent(t domain.EventType) domain.Event {
	return domain.Event{Type: t, Timestamp: time.Now()}
}

func TestPublishSubscribe(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventConsultCompleted, func(_ context.Context, e domain.Event) {
		if e.Type == domain.EventConsultCompleted {
			got.Add(1)
		}
	})

	bus.Publish(context.Background(), newEvent(domain.EventConsultCompleted))
	bus.Close() // drain
	if got.Load() != 1 {
		t.Fatalf("expected 1, got %d", got.Load())
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventConsultCompleted))
	bus.Publish(context.Background(), newEvent(domain.EventAgentRegistered))
	bus.Close()

	if got.Load() != 2 {
		t.Fatalf("expected 2, got %d", got.Load())
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	unsub := bus.Subscribe(domain.EventConsultCompleted, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventConsultCompleted))
	bus.Close()
	if got.Load() != 1 {
		t.Fatalf("expected 1 before unsub, got %d", got.Load())
	}

	// Re-create bus since Close was called
	bus = newTestBus()
	unsub2 := bus.Subscribe(domain.EventConsultCompleted, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})
	_ = unsub // original unsub for old bus

	unsub2()
	bus.Publish(context.Background(), newEvent(domain.EventConsultCompleted))
	bus.Close()

	if got.Load() != 1 {
		t.Fatalf("expected still 1 after unsub, got %d", got.Load())
	}
}

func TestConcurrentPublish(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventConsultCompleted, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), newEvent(domain.EventConsultCompleted))
		}()
	}
	wg.Wait()
	bus.Close()

	if got.Load() != 100 {
		t.Fatalf("expected 100, got %d", got.Load())
	}
}

func TestPanicRecovery(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	// First subscriber panics
	bus.Subscribe(domain.EventConsultCompleted, func(_ context.Context, _ domain.Event) {
		panic("boom")
	})
	// Second subscriber should still fire
	bus.Subscribe(domain.EventConsultCompleted, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventConsultCompleted))
	bus.Close()

	if got.Load() != 1 {
		t.Fatalf("expected 1 (second handler), got %d", got.Load())
	}
}

func TestCloseDrainsAndRejectsNew(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventConsultCompleted, func(_ context.Context, _ domain.Event) {
		time.Sleep(50 * time.Millisecond)
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventConsultCompleted))
	bus.Close() // should block until the handler finishes

	if got.Load() != 1 {
		t.Fatalf("expected handler to have run, got %d", got.Load())
	}

	// After close, new publishes should be no-ops
	bus.Publish(context.Background(), newEvent(domain.EventConsultCompleted))
	// Wait a bit to see if spurious delivery happens
	time.Sleep(20 * time.Millisecond)
	if got.Load() != 1 {
		t.Fatalf("expected no delivery after close, got %d", got.Load())
	}
}

func TestPublishStampsRequestIDAndTimestamp(t *testing.T) {
	bus := newTestBus()

	var mu sync.Mutex
	var got domain.Event
	bus.Subscribe(domain.EventConsultCompleted, func(_ context.Context, e domain.Event) {
		mu.Lock()
		got = e
		mu.Unlock()
	})

	ctx := domain.ContextWithRequestID(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	bus.Publish(ctx, domain.Event{Type: domain.EventConsultCompleted})
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	if got.RequestID != "01ARZ3NDEKTSV4RRFFQ69G5FAV" {
		t.Errorf("request ID not inherited from context: %q", got.RequestID)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not stamped at publish")
	}
}

func TestPublishKeepsExplicitRequestID(t *testing.T) {
	bus := newTestBus()

	var mu sync.Mutex
	var got domain.Event
	bus.Subscribe(domain.EventConsultFailed, func(_ context.Context, e domain.Event) {
		mu.Lock()
		got = e
		mu.Unlock()
	})

	ctx := domain.ContextWithRequestID(context.Background(), "from-context")
	bus.Publish(ctx, domain.Event{Type: domain.EventConsultFailed, RequestID: "explicit"})
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	if got.RequestID != "explicit" {
		t.Errorf("explicit request ID overwritten: %q", got.RequestID)
	}
}

func TestSubscribeOutcomes(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	unsub := bus.SubscribeOutcomes(func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventConsultCompleted))
	bus.Publish(context.Background(), newEvent(domain.EventConsultFailed))
	bus.Publish(context.Background(), newEvent(domain.EventAgentRegistered))

	unsub()
	bus.Publish(context.Background(), newEvent(domain.EventConsultCompleted))
	bus.Close()

	if got.Load() != 2 {
		t.Fatalf("expected both outcome events once each, got %d", got.Load())
	}
}
