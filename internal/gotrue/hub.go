package gotrue

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Listener receives auth-state changes. session is nil after sign-out.
type Listener func(event AuthChangeEvent, session *Session)

// Subscription is a registered Listener.
type Subscription struct {
	ID  uuid.UUID
	hub *hub
}

// Unsubscribe removes the listener. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.hub == nil {
		return
	}

	s.hub.remove(s.ID)
}

type hub struct {
	mu        sync.RWMutex
	listeners map[uuid.UUID]Listener
}

func newHub() *hub {
	return &hub{listeners: make(map[uuid.UUID]Listener)}
}

func (h *hub) add(l Listener) *Subscription {
	id := uuid.New()

	h.mu.Lock()
	h.listeners[id] = l
	h.mu.Unlock()

	return &Subscription{ID: id, hub: h}
}

func (h *hub) remove(id uuid.UUID) {
	h.mu.Lock()
	delete(h.listeners, id)
	h.mu.Unlock()
}

func (h *hub) active(id uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.listeners[id]

	return ok
}

// emit calls every listener outside the lock, so listeners may unsubscribe.
func (h *hub) emit(event AuthChangeEvent, session *Session) {
	h.mu.RLock()
	ids := make([]uuid.UUID, 0, len(h.listeners))
	listeners := make([]Listener, 0, len(h.listeners))

	for id, l := range h.listeners {
		ids = append(ids, id)
		listeners = append(listeners, l)
	}
	h.mu.RUnlock()

	for i, l := range listeners {
		h.call(ids[i], l, event, session)
	}
}

func (h *hub) call(id uuid.UUID, l Listener, event AuthChangeEvent, session *Session) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("subscription", id.String()).Str("event", string(event)).
				Interface("panic", r).Msg("auth state listener panicked")
		}
	}()

	l(event, session)
}
