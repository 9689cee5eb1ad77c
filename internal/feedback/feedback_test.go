package feedback_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/feedback"
	"github.com/EmpoweredVote/academic-portal/internal/middleware"
	"github.com/EmpoweredVote/academic-portal/internal/portaltest"
	"github.com/EmpoweredVote/academic-portal/internal/reactions"
	"github.com/EmpoweredVote/academic-portal/internal/session"
	"github.com/EmpoweredVote/academic-portal/internal/workspace"
	"github.com/go-chi/chi/v5"
)

func TestAlreadyReported(t *testing.T) {
	reports := []api.Report{{ID: 1, UserID: 5, ResourceID: 9}}
	if !feedback.AlreadyReported(reports, 5, 9) {
		t.Error("expected duplicate to be detected")
	}
	if feedback.AlreadyReported(reports, 5, 10) || feedback.AlreadyReported(reports, 6, 9) {
		t.Error("other user or resource is not a duplicate")
	}
}

type fixture struct {
	backend  *portaltest.Backend
	provider *session.Provider
	server   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := portaltest.NewBackend(t)
	backend.Resources = []api.Resource{{ID: 9, Title: "Apuntes", SubjectID: 1}}
	backend.Comments = []api.Comment{
		{ID: 1, ResourceID: 9, UserID: 5, Text: "Muy útil", CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, ResourceID: 9, UserID: 6, Text: "Falta el tema 3", CreatedAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
	}
	backend.Reactions = []api.Reaction{{UserID: 6, ResourceID: 9, Type: api.ReactionLike}}

	provider, _ := session.NewProvider(session.NewMemoryStore(), nil)
	hub := workspace.NewHub(backend.Client(), provider, workspace.Options{})

	r := chi.NewRouter()
	r.Route("/student", func(r chi.Router) {
		r.Use(middleware.PanelStack(provider, hub, session.PanelStudent)...)
		feedback.Routes(r)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &fixture{backend: backend, provider: provider, server: srv}
}

func (f *fixture) do(t *testing.T, cookie *http.Cookie, method, path, body string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(cookie)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestReactionToggleRoundTrip(t *testing.T) {
	f := newFixture(t)
	_, cookie := portaltest.Login(t, f.provider, 5, api.RoleStudent)

	steps := []struct {
		give     string
		mine     api.ReactionType
		likes    int
		dislikes int
	}{
		{"like", api.ReactionLike, 2, 0},
		{"dislike", api.ReactionDislike, 1, 1},
		{"dislike", "", 1, 0},
	}
	for _, step := range steps {
		resp := f.do(t, cookie, http.MethodPost, "/student/resources/9/reactions", `{"tipo":"`+step.give+`"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", step.give, resp.StatusCode)
		}
		var state reactions.State
		json.NewDecoder(resp.Body).Decode(&state)
		if state.Mine != step.mine || state.Counts.Likes != step.likes || state.Counts.Dislikes != step.dislikes {
			t.Errorf("after %s: got %+v", step.give, state)
		}
	}

	if resp := f.do(t, cookie, http.MethodPost, "/student/resources/9/reactions", `{"tipo":"love"}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown reaction type: expected 400, got %d", resp.StatusCode)
	}
}

func TestFailedReactionRollsBack(t *testing.T) {
	f := newFixture(t)
	_, cookie := portaltest.Login(t, f.provider, 5, api.RoleStudent)

	f.backend.Fail(http.MethodPost, "/likes", http.StatusInternalServerError, "Error interno")
	if resp := f.do(t, cookie, http.MethodPost, "/student/resources/9/reactions", `{"tipo":"like"}`); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}

	resp := f.do(t, cookie, http.MethodGet, "/student/resources/9/reactions", "")
	var state reactions.State
	json.NewDecoder(resp.Body).Decode(&state)
	if state.Mine != "" || state.Counts.Likes != 1 {
		t.Errorf("failed toggle should be rolled back, got %+v", state)
	}
}

func TestDuplicateReportIsRejectedLocally(t *testing.T) {
	f := newFixture(t)
	_, cookie := portaltest.Login(t, f.provider, 5, api.RoleStudent)

	if resp := f.do(t, cookie, http.MethodPost, "/student/resources/9/reports", `{"motivo":"Contenido incorrecto"}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp := f.do(t, cookie, http.MethodPost, "/student/resources/9/reports", `{"motivo":"Otra vez"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}
	if n := f.backend.Calls(http.MethodPost, "/reportes"); n != 1 {
		t.Errorf("duplicate must not reach the backend, got %d calls", n)
	}
}

func TestCommentOwnership(t *testing.T) {
	f := newFixture(t)
	_, cookie := portaltest.Login(t, f.provider, 5, api.RoleStudent)

	resp := f.do(t, cookie, http.MethodGet, "/student/resources/9/comments?sort=date_asc", "")
	var view struct {
		Items []feedback.CommentView `json:"items"`
	}
	json.NewDecoder(resp.Body).Decode(&view)
	if len(view.Items) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(view.Items))
	}
	if !view.Items[0].CanEdit || view.Items[1].CanEdit {
		t.Errorf("only the user's own comment is editable: %+v", view.Items)
	}

	if resp := f.do(t, cookie, http.MethodPut, "/student/resources/9/comments/2", `{"texto":"hack"}`); resp.StatusCode != http.StatusForbidden {
		t.Errorf("editing another user's comment: expected 403, got %d", resp.StatusCode)
	}
	if resp := f.do(t, cookie, http.MethodDelete, "/student/resources/9/comments/2", ""); resp.StatusCode != http.StatusForbidden {
		t.Errorf("deleting another user's comment: expected 403, got %d", resp.StatusCode)
	}

	if resp := f.do(t, cookie, http.MethodPut, "/student/resources/9/comments/1", `{"texto":"Muy útil, gracias"}`); resp.StatusCode != http.StatusOK {
		t.Errorf("editing own comment: expected 200, got %d", resp.StatusCode)
	}
	if resp := f.do(t, cookie, http.MethodDelete, "/student/resources/9/comments/1", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("deleting own comment: expected 204, got %d", resp.StatusCode)
	}

	f.backend.Lock()
	left := len(f.backend.Comments)
	f.backend.Unlock()
	if left != 1 {
		t.Errorf("expected 1 comment left, got %d", left)
	}
}

func TestAddCommentRequiresText(t *testing.T) {
	f := newFixture(t)
	_, cookie := portaltest.Login(t, f.provider, 5, api.RoleStudent)

	if resp := f.do(t, cookie, http.MethodPost, "/student/resources/9/comments", `{"texto":"   "}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	resp := f.do(t, cookie, http.MethodPost, "/student/resources/9/comments", `{"texto":"¿Hay solucionario?"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if body := f.backend.LastBody(http.MethodPost, "/comentarios"); body["id_usuario"] != float64(5) {
		t.Errorf("comment should be authored by the session user, got %v", body)
	}
}
