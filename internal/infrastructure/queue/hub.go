package queue

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/verdantmart/identity-gateway/internal/core/domain"
	"github.com/verdantmart/identity-gateway/internal/core/ports"
)

const channelBuffer = 16

// Hub fans auth-state changes out to subscribers. Each subscriber owns a
// buffered channel drained by its own goroutine, so a subscriber sees events
// in publish order and a slow listener never blocks the others' delivery.
type Hub struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]chan *domain.Principal
	wg     sync.WaitGroup
}

// NewHub creates a Hub. Close releases every subscriber goroutine.
func NewHub(log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		ctx:    ctx,
		cancel: cancel,
		log:    log,
		subs:   make(map[int]chan *domain.Principal),
	}
}

// Subscribe registers listener and queues initial as its first event.
// The returned func unsubscribes; calling it more than once is safe.
func (h *Hub) Subscribe(listener ports.AuthStateListener, initial *domain.Principal) func() {
	ch := make(chan *domain.Principal, channelBuffer)
	ch <- initial.Clone()

	h.mu.Lock()
	if h.ctx.Err() != nil {
		h.mu.Unlock()
		close(ch)
		return func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.wg.Add(1)
	h.mu.Unlock()

	go h.runSubscriber(id, ch, listener)

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

// Publish delivers principal (nil for signed out) to every subscriber.
// The call blocks only when a subscriber's buffer is full.
func (h *Hub) Publish(principal *domain.Principal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- principal.Clone():
		case <-h.ctx.Done():
			return
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close stops delivery and waits for subscriber goroutines to exit.
func (h *Hub) Close() {
	h.cancel()
	h.mu.Lock()
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		close(ch)
		delete(h.subs, id)
	}
}

func (h *Hub) runSubscriber(id int, ch <-chan *domain.Principal, listener ports.AuthStateListener) {
	defer h.wg.Done()
	for {
		select {
		case <-h.ctx.Done():
			return
		case p, ok := <-ch:
			if !ok {
				return
			}
			h.deliver(id, p, listener)
		}
	}
}

func (h *Hub) deliver(id int, p *domain.Principal, listener ports.AuthStateListener) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Int("subscriber", id).Msg("auth state listener panicked")
		}
	}()
	listener(h.ctx, p)
}
