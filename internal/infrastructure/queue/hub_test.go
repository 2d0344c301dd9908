package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
)

type recorder struct {
	mu     sync.Mutex
	events []*domain.Principal
	notify chan struct{}
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan struct{}, 64)}
}

func (r *recorder) listen(_ context.Context, p *domain.Principal) {
	r.mu.Lock()
	r.events = append(r.events, p)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) []*domain.Principal {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		r.mu.Lock()
		if len(r.events) >= n {
			out := append([]*domain.Principal(nil), r.events...)
			r.mu.Unlock()
			return out
		}
		r.mu.Unlock()
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d events", n)
		}
	}
}

func TestHub_InitialThenOrderedEvents(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	defer hub.Close()

	rec := newRecorder()
	unsubscribe := hub.Subscribe(rec.listen, nil)
	defer unsubscribe()

	hub.Publish(&domain.Principal{ID: "a"})
	hub.Publish(nil)
	hub.Publish(&domain.Principal{ID: "b"})

	events := rec.wait(t, 4)
	if events[0] != nil {
		t.Fatalf("expected initial nil event, got %+v", events[0])
	}
	if events[1] == nil || events[1].ID != "a" {
		t.Fatalf("unexpected second event %+v", events[1])
	}
	if events[2] != nil {
		t.Fatalf("expected sign-out event, got %+v", events[2])
	}
	if events[3] == nil || events[3].ID != "b" {
		t.Fatalf("unexpected fourth event %+v", events[3])
	}
}

func TestHub_PublishesCopies(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	defer hub.Close()

	rec := newRecorder()
	defer hub.Subscribe(rec.listen, nil)()

	p := &domain.Principal{ID: "a", Email: "a@example.com"}
	hub.Publish(p)
	p.Email = "mutated@example.com"

	events := rec.wait(t, 2)
	if events[1].Email != "a@example.com" {
		t.Fatalf("subscriber saw mutation: %+v", events[1])
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	defer hub.Close()

	rec := newRecorder()
	unsubscribe := hub.Subscribe(rec.listen, nil)
	rec.wait(t, 1)

	unsubscribe()
	unsubscribe()
	if hub.Len() != 0 {
		t.Fatalf("expected no subscribers, got %d", hub.Len())
	}

	hub.Publish(&domain.Principal{ID: "late"})
	time.Sleep(20 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 1 {
		t.Fatalf("expected only the initial event, got %d", len(rec.events))
	}
}

func TestHub_ListenerPanicIsContained(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	defer hub.Close()

	rec := newRecorder()
	calls := 0
	defer hub.Subscribe(func(ctx context.Context, p *domain.Principal) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		rec.listen(ctx, p)
	}, nil)()

	hub.Publish(&domain.Principal{ID: "after-panic"})

	events := rec.wait(t, 1)
	if events[0] == nil || events[0].ID != "after-panic" {
		t.Fatalf("unexpected event after panic: %+v", events[0])
	}
}

func TestHub_SubscribeAfterClose(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.Close()

	unsubscribe := hub.Subscribe(func(context.Context, *domain.Principal) {
		t.Fatal("listener must not run after close")
	}, nil)
	unsubscribe()
	time.Sleep(10 * time.Millisecond)
}
