package admin_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/admin"
	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/portaltest"
	"github.com/EmpoweredVote/academic-portal/internal/session"
	"github.com/EmpoweredVote/academic-portal/internal/workspace"
	"github.com/go-chi/chi/v5"
)

func TestBuildUserUpdateOmitsBlankPassword(t *testing.T) {
	in, err := admin.BuildUserUpdate(admin.UserForm{Names: "Ana", Email: "ana@uni.edu", Password: "   ", RoleID: 2})
	if err != nil {
		t.Fatalf("BuildUserUpdate: %v", err)
	}
	if in.Password != nil {
		t.Fatalf("blank password must be omitted, got %q", *in.Password)
	}
	raw, _ := json.Marshal(in)
	if strings.Contains(string(raw), "contrasena") {
		t.Errorf("payload must not carry a password field: %s", raw)
	}

	in, _ = admin.BuildUserUpdate(admin.UserForm{Names: "Ana", Email: "ana@uni.edu", Password: "nueva"})
	if in.Password == nil || *in.Password != "nueva" {
		t.Errorf("non-blank password should be forwarded, got %+v", in.Password)
	}
}

func TestBuildUserCreateValidation(t *testing.T) {
	if _, err := admin.BuildUserCreate(admin.UserForm{Names: "Ana", Email: "ana@uni.edu"}); !errors.Is(err, admin.ErrPasswordRequired) {
		t.Errorf("expected ErrPasswordRequired, got %v", err)
	}
	if _, err := admin.BuildUserCreate(admin.UserForm{Email: "ana@uni.edu", Password: "x"}); !errors.Is(err, admin.ErrMissingFields) {
		t.Errorf("expected ErrMissingFields, got %v", err)
	}
}

func TestCheckRoleEditable(t *testing.T) {
	if !errors.Is(admin.CheckRoleEditable(1), admin.ErrProtectedRole) {
		t.Error("role 1 must be protected")
	}
	if err := admin.CheckRoleEditable(2); err != nil {
		t.Errorf("role 2 should be editable, got %v", err)
	}
}

type fixture struct {
	backend *portaltest.Backend
	server  *httptest.Server
	admin   *http.Cookie
	student *http.Cookie
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := portaltest.NewBackend(t)
	backend.AddUser(api.User{ID: 1, Names: "Root", Email: "root@uni.edu", RoleID: 1}, "rootpw")
	backend.AddUser(api.User{ID: 5, Names: "Ana", Email: "ana@uni.edu", RoleID: 2, CareerID: 1}, "secret")
	backend.Roles = []api.Role{{ID: 1, Name: "Administrador"}, {ID: 2, Name: "Estudiante"}, {ID: 3, Name: "Docente"}}
	backend.Logs = []api.LogEntry{
		{ID: 1, UserID: 1, Action: "login", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, UserID: 5, Action: "upload", CreatedAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
	}

	provider, _ := session.NewProvider(session.NewMemoryStore(), nil)
	hub := workspace.NewHub(backend.Client(), provider, workspace.Options{})

	r := chi.NewRouter()
	r.Mount("/admin", admin.SetupRoutes(provider, hub))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	_, adminCookie := portaltest.Login(t, provider, 1, api.RoleAdmin)
	_, studentCookie := portaltest.Login(t, provider, 5, api.RoleStudent)
	return &fixture{backend: backend, server: srv, admin: adminCookie, student: studentCookie}
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

func TestStudentsCannotOpenAdminPanel(t *testing.T) {
	f := newFixture(t)
	if resp := f.do(t, f.student, http.MethodGet, "/admin/users", ""); resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
}

func TestUpdateUserWithBlankPasswordKeepsStoredPassword(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, f.admin, http.MethodPut, "/admin/users/5",
		`{"nombres":"Ana María","correo":"ana@uni.edu","contrasena":"","id_carrera":1,"id_rol":2}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := f.backend.LastBody(http.MethodPut, "/usuarios/5")
	if _, sent := body["contrasena"]; sent {
		t.Errorf("blank password must not be sent, got %v", body)
	}
	f.backend.Lock()
	pw := f.backend.Passwords[5]
	name := f.backend.Users[1].Names
	f.backend.Unlock()
	if pw != "secret" {
		t.Errorf("stored password changed to %q", pw)
	}
	if name != "Ana María" {
		t.Errorf("name not updated, got %q", name)
	}

	var out struct {
		User    map[string]interface{} `json:"user"`
		Message string                 `json:"message"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if _, leaked := out.User["contrasena"]; leaked {
		t.Error("response must never carry a password")
	}
	if out.Message == "" {
		t.Error("expected a success message")
	}
}

func TestCreateUserRequiresPassword(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, f.admin, http.MethodPost, "/admin/users", `{"nombres":"Luis","correo":"luis@uni.edu","id_rol":2}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if n := f.backend.Calls(http.MethodPost, "/usuarios"); n != 0 {
		t.Errorf("backend should not be called, got %d calls", n)
	}

	resp = f.do(t, f.admin, http.MethodPost, "/admin/users", `{"nombres":"Luis","correo":"luis@uni.edu","contrasena":"pw","id_rol":2}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	f.backend.Lock()
	n := len(f.backend.Users)
	f.backend.Unlock()
	if n != 3 {
		t.Errorf("expected 3 users, got %d", n)
	}
}

func TestFailedDeleteRollsBack(t *testing.T) {
	f := newFixture(t)
	f.do(t, f.admin, http.MethodGet, "/admin/users", "")

	f.backend.Fail(http.MethodDelete, "/usuarios/5", http.StatusInternalServerError, "Error interno")
	resp := f.do(t, f.admin, http.MethodDelete, "/admin/users/5", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}

	resp = f.do(t, f.admin, http.MethodGet, "/admin/users", "")
	var view struct {
		Items   []api.User `json:"items"`
		Message string     `json:"message"`
	}
	json.NewDecoder(resp.Body).Decode(&view)
	if len(view.Items) != 2 {
		t.Errorf("failed delete should be rolled back, got %+v", view.Items)
	}
	if !strings.HasPrefix(view.Message, "Error: ") {
		t.Errorf("expected an error message, got %q", view.Message)
	}
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	f := newFixture(t)
	if resp := f.do(t, f.admin, http.MethodDelete, "/admin/users/1", ""); resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
}

func TestProtectedRole(t *testing.T) {
	f := newFixture(t)

	if resp := f.do(t, f.admin, http.MethodPut, "/admin/roles/1", `{"nombre":"Root"}`); resp.StatusCode != http.StatusForbidden {
		t.Errorf("editing role 1: expected 403, got %d", resp.StatusCode)
	}
	if resp := f.do(t, f.admin, http.MethodDelete, "/admin/roles/1", ""); resp.StatusCode != http.StatusForbidden {
		t.Errorf("deleting role 1: expected 403, got %d", resp.StatusCode)
	}
	if n := f.backend.Calls(http.MethodPut, "/roles/1") + f.backend.Calls(http.MethodDelete, "/roles/1"); n != 0 {
		t.Errorf("protected role must not reach the backend, got %d calls", n)
	}

	if resp := f.do(t, f.admin, http.MethodPut, "/admin/roles/3", `{"nombre":"Profesor","descripcion":"Docentes"}`); resp.StatusCode != http.StatusOK {
		t.Errorf("editing role 3: expected 200, got %d", resp.StatusCode)
	}
}

func TestLogsSortedNewestFirst(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, f.admin, http.MethodGet, "/admin/logs", "")
	var view struct {
		Items []api.LogEntry `json:"items"`
	}
	json.NewDecoder(resp.Body).Decode(&view)
	if len(view.Items) != 2 || view.Items[0].ID != 2 {
		t.Errorf("expected newest log first, got %+v", view.Items)
	}
}
