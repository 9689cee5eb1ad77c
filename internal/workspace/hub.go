package workspace

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/session"
)

// Hub hands out one Workspace per session and drops it when the session
// closes.
type Hub struct {
	base *api.Client
	opts Options

	mu     sync.Mutex
	spaces map[string]*Workspace
}

// NewHub creates a hub whose workspaces talk to the backend through base.
// When provider is non-nil, closed sessions release their workspace.
func NewHub(base *api.Client, provider *session.Provider, opts Options) *Hub {
	h := &Hub{base: base, opts: opts, spaces: make(map[string]*Workspace)}
	if provider != nil {
		provider.Subscribe(func(ev session.Event) {
			if ev.Kind == session.Closed {
				h.Drop(ev.Session.ID)
			}
		})
	}
	return h
}

// For returns the workspace of s, creating it on first use.
func (h *Hub) For(s session.Session) *Workspace {
	h.mu.Lock()
	defer h.mu.Unlock()

	if w, ok := h.spaces[s.ID]; ok {
		return w
	}
	w := New(s, h.base.WithToken(s.Token), h.opts)
	h.spaces[s.ID] = w
	log.Printf("[workspace] opened for session %s (user %d)", s.ID, s.UserID)
	return w
}

// Drop closes and forgets the workspace of session id, if any.
func (h *Hub) Drop(id string) {
	h.mu.Lock()
	w, ok := h.spaces[id]
	delete(h.spaces, id)
	h.mu.Unlock()

	if ok {
		w.Close()
		log.Printf("[workspace] dropped session %s", id)
	}
}

// Sweep drops every workspace whose session expired at or before now and
// reports how many went. It covers sessions that expire without being
// closed, such as redis TTL expiry or an offline prune.
func (h *Hub) Sweep(now time.Time) int {
	h.mu.Lock()
	var expired []*Workspace
	for id, w := range h.spaces {
		if !now.Before(w.Session.ExpiresAt) {
			expired = append(expired, w)
			delete(h.spaces, id)
		}
	}
	h.mu.Unlock()

	for _, w := range expired {
		w.Close()
	}
	if len(expired) > 0 {
		log.Printf("[workspace] swept %d expired workspaces", len(expired))
	}
	return len(expired)
}

// RunSweeper prunes expired sessions from provider and sweeps the hub every
// interval until ctx is done.
func (h *Hub) RunSweeper(ctx context.Context, provider *session.Provider, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if provider != nil {
				if _, err := provider.PruneExpired(ctx); err != nil {
					log.Printf("[workspace] prune expired sessions: %v", err)
				}
			}
			h.Sweep(now)
		}
	}
}

// Len reports how many workspaces are open.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.spaces)
}
