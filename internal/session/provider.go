// Package session is the gateway's single owner of authentication tokens.
// Every read, write and clear of a token goes through Provider, which
// notifies subscribers whenever a session opens or closes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/identity"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Panel names, one per role-specific area of the portal.
const (
	PanelAdmin   = "admin"
	PanelStudent = "student"
	PanelTeacher = "teacher"
)

// PanelsFor lists the panels a role may open. Teachers can also browse the
// student catalog.
func PanelsFor(role int) []string {
	switch role {
	case api.RoleAdmin:
		return []string{PanelAdmin}
	case api.RoleStudent:
		return []string{PanelStudent}
	case api.RoleTeacher:
		return []string{PanelTeacher, PanelStudent}
	default:
		return nil
	}
}

// Session is one logged-in browser.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    int       `json:"user_id"`
	Role      int       `json:"role"`
	Email     string    `json:"email"`
	Panels    []string  `json:"panels"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// HasPanel reports whether the session may open panel.
func (s Session) HasPanel(panel string) bool {
	for _, p := range s.Panels {
		if p == panel {
			return true
		}
	}
	return false
}

// Store persists sessions. Find returns ErrNotFound for unknown ids.
type Store interface {
	Save(ctx context.Context, s Session) error
	Find(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// Expirer is implemented by stores that can drop expired sessions in bulk.
// Stores with native expiry (redis) do not need it.
type Expirer interface {
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}

// EventKind tells subscribers what happened.
type EventKind int

const (
	Opened EventKind = iota
	Closed
)

// Event is delivered to subscribers after a session opens or closes.
type Event struct {
	Kind    EventKind
	Session Session
}

// Provider opens, reads and closes sessions.
type Provider struct {
	store  Store
	sealer *Sealer
	now    func() time.Time

	mu      sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// NewProvider creates a provider over store. A non-nil key seals tokens at
// rest; nil stores them as issued.
func NewProvider(store Store, key []byte) (*Provider, error) {
	p := &Provider{
		store: store,
		now:   time.Now,
		subs:  make(map[int]func(Event)),
	}
	if key != nil {
		s, err := NewSealer(key)
		if err != nil {
			return nil, err
		}
		p.sealer = s
	}
	return p, nil
}

// Subscribe registers fn for session events and returns its unsubscribe func.
func (p *Provider) Subscribe(fn func(Event)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *Provider) publish(ev Event) {
	p.mu.Lock()
	subs := make([]func(Event), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	ev.Session.Token = ""
	for _, fn := range subs {
		fn(ev)
	}
}

// Open stores a new session for token. Tokens that do not decode, or are
// already expired, are rejected.
func (p *Provider) Open(ctx context.Context, token string) (Session, error) {
	claims, err := identity.ParseClaims(token)
	if err != nil {
		return Session{}, err
	}
	now := p.now()
	if claims.Expired(now) {
		return Session{}, ErrExpired
	}

	s := Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    claims.UserID,
		Role:      claims.Role,
		Email:     claims.Email,
		Panels:    PanelsFor(claims.Role),
		ExpiresAt: claims.ExpiresAt,
		CreatedAt: now,
	}

	stored := s
	if p.sealer != nil {
		sealed, err := p.sealer.Seal(token)
		if err != nil {
			return Session{}, fmt.Errorf("seal token: %w", err)
		}
		stored.Token = sealed
	}
	if err := p.store.Save(ctx, stored); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}

	log.Printf("[session] opened %s for user %d (role %d)", s.ID, s.UserID, s.Role)
	p.publish(Event{Kind: Opened, Session: s})
	return s, nil
}

// Get returns the live session with id. Expired sessions are closed and
// reported as ErrExpired.
func (p *Provider) Get(ctx context.Context, id string) (Session, error) {
	s, err := p.store.Find(ctx, id)
	if err != nil {
		return Session{}, err
	}

	if !p.now().Before(s.ExpiresAt) {
		if err := p.Close(ctx, id); err != nil {
			log.Printf("[session] close expired %s: %v", id, err)
		}
		return Session{}, ErrExpired
	}

	if p.sealer != nil {
		token, err := p.sealer.Open(s.Token)
		if err != nil {
			return Session{}, fmt.Errorf("unseal token: %w", err)
		}
		s.Token = token
	}
	return s, nil
}

// Close deletes the session and notifies subscribers. Closing an unknown
// session is not an error.
func (p *Provider) Close(ctx context.Context, id string) error {
	s, err := p.store.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := p.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	log.Printf("[session] closed %s", id)
	p.publish(Event{Kind: Closed, Session: s})
	return nil
}

// PruneExpired deletes expired sessions from the store, when it supports
// bulk expiry, and publishes Closed for each one.
func (p *Provider) PruneExpired(ctx context.Context) (int, error) {
	ex, ok := p.store.(Expirer)
	if !ok {
		return 0, nil
	}
	ids, err := ex.DeleteExpired(ctx, p.now())
	for _, id := range ids {
		p.publish(Event{Kind: Closed, Session: Session{ID: id}})
	}
	if len(ids) > 0 {
		log.Printf("[session] pruned %d expired sessions", len(ids))
	}
	return len(ids), err
}
