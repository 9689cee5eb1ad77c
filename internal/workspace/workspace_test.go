package workspace_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/portaltest"
	"github.com/EmpoweredVote/academic-portal/internal/session"
	"github.com/EmpoweredVote/academic-portal/internal/workspace"
)

func openSession(t *testing.T, p *session.Provider, userID, role int) session.Session {
	t.Helper()
	s, err := p.Open(context.Background(), portaltest.Token(userID, role, time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestHubIsolatesSessions(t *testing.T) {
	backend := portaltest.NewBackend(t)
	backend.Resources = []api.Resource{{ID: 1, Title: "Apuntes", SubjectID: 7}}

	provider, _ := session.NewProvider(session.NewMemoryStore(), nil)
	hub := workspace.NewHub(backend.Client(), provider, workspace.Options{ReloadFloor: time.Hour})

	alice := openSession(t, provider, 10, api.RoleStudent)
	bob := openSession(t, provider, 11, api.RoleStudent)

	wa := hub.For(alice)
	wb := hub.For(bob)
	if wa == wb {
		t.Fatal("sessions must not share a workspace")
	}
	if hub.For(alice) != wa {
		t.Error("expected the same workspace on repeated lookups")
	}

	col, err := wa.SelectSubject(context.Background(), 7, false)
	if err != nil {
		t.Fatalf("SelectSubject: %v", err)
	}
	if n := len(col.Snapshot().Items); n != 1 {
		t.Errorf("expected 1 resource, got %d", n)
	}
	if _, ok := wb.Resources.Peek(7); ok {
		t.Error("loading in one session must not populate another")
	}

	backend.Lock()
	auth := backend.Requests[len(backend.Requests)-1].Auth
	backend.Unlock()
	if auth != "Bearer "+alice.Token {
		t.Errorf("request should carry the session token, got %q", auth)
	}
}

func TestHubDropsClosedSessions(t *testing.T) {
	backend := portaltest.NewBackend(t)
	provider, _ := session.NewProvider(session.NewMemoryStore(), nil)
	hub := workspace.NewHub(backend.Client(), provider, workspace.Options{})

	s := openSession(t, provider, 10, api.RoleAdmin)
	hub.For(s)
	if hub.Len() != 1 {
		t.Fatalf("expected one workspace, got %d", hub.Len())
	}

	if err := provider.Close(context.Background(), s.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if hub.Len() != 0 {
		t.Errorf("workspace should be dropped on logout, got %d", hub.Len())
	}
}

func TestSelectSubjectRevisitServesCache(t *testing.T) {
	backend := portaltest.NewBackend(t)
	backend.Resources = []api.Resource{{ID: 1, SubjectID: 7}, {ID: 2, SubjectID: 8}}

	w := workspace.New(session.Session{ID: "s", UserID: 1}, backend.Client(), workspace.Options{ReloadFloor: time.Hour})
	defer w.Close()

	ctx := context.Background()
	w.SelectSubject(ctx, 7, false)
	w.SelectSubject(ctx, 8, false)
	w.SelectSubject(ctx, 7, false)

	if n := backend.Calls(http.MethodGet, "/recursos"); n != 2 {
		t.Errorf("revisit should be served from cache, got %d backend calls", n)
	}

	w.SelectSubject(ctx, 7, true)
	if n := backend.Calls(http.MethodGet, "/recursos"); n != 3 {
		t.Errorf("forced refresh should reload immediately, got %d backend calls", n)
	}
}

func TestRefreshCareersHonorsFloor(t *testing.T) {
	backend := portaltest.NewBackend(t)
	backend.Careers = []api.Career{{ID: 1, Name: "Sistemas", Type: 1}}

	w := workspace.New(session.Session{ID: "s", UserID: 1}, backend.Client(), workspace.Options{ReloadFloor: time.Hour})
	defer w.Close()

	ctx := context.Background()
	if err := w.RefreshCareers(ctx); err != nil {
		t.Fatalf("RefreshCareers: %v", err)
	}
	// The first request after load runs; the next one falls inside the floor.
	w.RefreshCareers(ctx)
	w.RefreshCareers(ctx)

	if n := backend.Calls(http.MethodGet, "/carreras"); n != 2 {
		t.Errorf("expected 2 career loads, got %d", n)
	}
}

func TestHubSweepsExpiredWorkspaces(t *testing.T) {
	backend := portaltest.NewBackend(t)
	hub := workspace.NewHub(backend.Client(), nil, workspace.Options{})

	now := time.Now()
	for i := 0; i < 50; i++ {
		hub.For(session.Session{ID: fmt.Sprintf("short-%d", i), UserID: i, ExpiresAt: now.Add(time.Second)})
	}
	live := hub.For(session.Session{ID: "long", UserID: 99, ExpiresAt: now.Add(time.Hour)})

	if n := hub.Sweep(now); n != 0 {
		t.Fatalf("nothing has expired yet, swept %d", n)
	}
	if n := hub.Sweep(now.Add(2 * time.Second)); n != 50 {
		t.Errorf("expected 50 swept, got %d", n)
	}
	if hub.Len() != 1 {
		t.Errorf("expected only the live workspace left, got %d", hub.Len())
	}
	if hub.For(session.Session{ID: "long", ExpiresAt: now.Add(time.Hour)}) != live {
		t.Error("live workspace should be kept")
	}
}

func TestRunSweeperPrunesStore(t *testing.T) {
	backend := portaltest.NewBackend(t)
	store := session.NewMemoryStore()
	provider, _ := session.NewProvider(store, nil)
	hub := workspace.NewHub(backend.Client(), provider, workspace.Options{})

	s := openSession(t, provider, 10, api.RoleStudent)
	hub.For(s)

	// Rewrite the stored expiry so the sweeper sees it as already past.
	s.ExpiresAt = time.Now().Add(-time.Second)
	store.Save(context.Background(), s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.RunSweeper(ctx, provider, 10*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for hub.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Len() != 0 {
		t.Fatalf("expired workspace was not dropped, hub holds %d", hub.Len())
	}
	if _, err := store.Find(context.Background(), s.ID); err == nil {
		t.Error("expired session should be pruned from the store")
	}
}
