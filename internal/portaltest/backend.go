// Package portaltest provides an in-memory stand-in for the portal's REST
// backend, mounted on a chi router behind httptest, plus token helpers.
package portaltest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/go-chi/chi/v5"
)

// Token builds an unsigned JWT carrying the claims the backend issues.
func Token(userID, role int, exp time.Time) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"id":      userID,
		"rol":     role,
		"correo":  "user" + strconv.Itoa(userID) + "@uni.edu",
		"nombres": "User " + strconv.Itoa(userID),
		"exp":     exp.Unix(),
	})
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

// Request is one call the backend received.
type Request struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

type failure struct {
	status int
	msg    string
}

// Backend is the fake REST backend. Its tables are exported so tests can
// seed and inspect them; take Lock around direct access once the server runs.
type Backend struct {
	sync.Mutex

	Users     []api.User
	Passwords map[int]string
	Roles     []api.Role
	Reports   []api.Report
	Resources []api.Resource
	Comments  []api.Comment
	Reactions []api.Reaction
	Careers   []api.Career
	Subjects  []api.Subject
	Logs      []api.LogEntry

	Requests []Request

	failures map[string]failure
	nextID   int
	server   *httptest.Server
}

// NewBackend starts a backend that is shut down when t ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := StartBackend()
	t.Cleanup(b.Close)
	return b
}

// StartBackend starts a backend the caller must Close, for TestMain setups.
func StartBackend() *Backend {
	b := &Backend{
		Passwords: make(map[int]string),
		failures:  make(map[string]failure),
		nextID:    100,
	}
	b.server = httptest.NewServer(b.routes())
	return b
}

// Close shuts the server down.
func (b *Backend) Close() { b.server.Close() }

// URL is the backend root to configure api.NewClient with.
func (b *Backend) URL() string { return b.server.URL }

// Client returns an unauthenticated client for this backend.
func (b *Backend) Client() *api.Client {
	return api.NewClient(b.URL(), api.WithTimeout(2*time.Second))
}

// Fail makes the next request to method path answer with status and msg.
func (b *Backend) Fail(method, path string, status int, msg string) {
	b.Lock()
	defer b.Unlock()
	b.failures[method+" "+path] = failure{status: status, msg: msg}
}

// Calls counts the requests received for method path.
func (b *Backend) Calls(method, path string) int {
	b.Lock()
	defer b.Unlock()
	n := 0
	for _, r := range b.Requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// LastBody decodes the body of the latest request to method path.
func (b *Backend) LastBody(method, path string) map[string]interface{} {
	b.Lock()
	defer b.Unlock()
	for i := len(b.Requests) - 1; i >= 0; i-- {
		r := b.Requests[i]
		if r.Method == method && r.Path == path {
			var out map[string]interface{}
			json.Unmarshal(r.Body, &out)
			return out
		}
	}
	return nil
}

// AddUser seeds a user with a password and returns it.
func (b *Backend) AddUser(u api.User, password string) api.User {
	b.Lock()
	defer b.Unlock()
	if u.ID == 0 {
		u.ID = b.id()
	}
	b.Users = append(b.Users, u)
	b.Passwords[u.ID] = password
	return u
}

func (b *Backend) id() int {
	b.nextID++
	return b.nextID
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Post("/auth/login", b.login)

	r.Get("/usuarios", list(b, &b.Users))
	r.Post("/usuarios", b.createUser)
	r.Put("/usuarios/{id}", b.updateUser)
	r.Delete("/usuarios/{id}", remove(b, &b.Users, func(u api.User) int { return u.ID }))

	r.Get("/roles", list(b, &b.Roles))
	r.Post("/roles", create(b, &b.Roles, func(x *api.Role, id int) { x.ID = id }))
	r.Put("/roles/{id}", update(b, &b.Roles, func(x api.Role) int { return x.ID }, func(x *api.Role, id int) { x.ID = id }))
	r.Delete("/roles/{id}", remove(b, &b.Roles, func(x api.Role) int { return x.ID }))

	r.Get("/reportes", list(b, &b.Reports))
	r.Post("/reportes", create(b, &b.Reports, func(x *api.Report, id int) { x.ID = id }))
	r.Delete("/reportes/{id}", remove(b, &b.Reports, func(x api.Report) int { return x.ID }))

	r.Get("/recursos", b.listResources)
	r.Get("/recursos/{id}", b.getResource)
	r.Post("/recursos", create(b, &b.Resources, func(x *api.Resource, id int) { x.ID = id }))
	r.Put("/recursos/{id}", update(b, &b.Resources, func(x api.Resource) int { return x.ID }, func(x *api.Resource, id int) { x.ID = id }))
	r.Delete("/recursos/{id}", remove(b, &b.Resources, func(x api.Resource) int { return x.ID }))

	r.Get("/comentarios/recurso/{id}", b.listComments)
	r.Post("/comentarios", create(b, &b.Comments, func(x *api.Comment, id int) { x.ID = id }))
	r.Put("/comentarios/{id}", update(b, &b.Comments, func(x api.Comment) int { return x.ID }, func(x *api.Comment, id int) { x.ID = id }))
	r.Delete("/comentarios/{id}", remove(b, &b.Comments, func(x api.Comment) int { return x.ID }))

	r.Get("/likes/recurso/{id}", b.listReactions)
	r.Post("/likes", b.react)

	r.Get("/carreras", list(b, &b.Careers))
	r.Get("/materias", b.listSubjects)
	r.Get("/logs", list(b, &b.Logs))

	return r
}

// record logs every request and answers queued failures.
func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		b.Lock()
		b.Requests = append(b.Requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		key := r.Method + " " + r.URL.Path
		f, failing := b.failures[key]
		delete(b.failures, key)
		b.Unlock()

		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			json.NewEncoder(w).Encode(map[string]string{"error": f.msg})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func idParam(r *http.Request) int {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	return id
}

func list[T any](b *Backend, rows *[]T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.Lock()
		out := append([]T{}, *rows...)
		b.Unlock()
		writeJSON(w, http.StatusOK, out)
	}
}

func create[T any](b *Backend, rows *[]T, setID func(*T, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido"})
			return
		}
		b.Lock()
		setID(&in, b.id())
		*rows = append(*rows, in)
		b.Unlock()
		writeJSON(w, http.StatusCreated, in)
	}
}

func update[T any](b *Backend, rows *[]T, idOf func(T) int, setID func(*T, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido"})
			return
		}
		id := idParam(r)
		setID(&in, id)

		b.Lock()
		defer b.Unlock()
		for i := range *rows {
			if idOf((*rows)[i]) == id {
				(*rows)[i] = in
				writeJSON(w, http.StatusOK, in)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No encontrado"})
	}
}

func remove[T any](b *Backend, rows *[]T, idOf func(T) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := idParam(r)
		b.Lock()
		defer b.Unlock()
		kept := (*rows)[:0]
		found := false
		for _, row := range *rows {
			if idOf(row) == id {
				found = true
				continue
			}
			kept = append(kept, row)
		}
		*rows = kept
		if !found {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "No encontrado"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"mensaje": "Eliminado"})
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido"})
		return
	}

	b.Lock()
	defer b.Unlock()
	for _, u := range b.Users {
		if u.Email == creds.Email && b.Passwords[u.ID] == creds.Password {
			writeJSON(w, http.StatusOK, api.LoginResult{Token: Token(u.ID, u.RoleID, time.Now().Add(time.Hour))})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Credenciales inválidas"})
}

func (b *Backend) createUser(w http.ResponseWriter, r *http.Request) {
	var in api.UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Password == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Contraseña requerida"})
		return
	}

	b.Lock()
	u := api.User{ID: b.id(), Names: in.Names, Email: in.Email, CareerID: in.CareerID, RoleID: in.RoleID}
	b.Users = append(b.Users, u)
	b.Passwords[u.ID] = *in.Password
	b.Unlock()
	writeJSON(w, http.StatusCreated, u)
}

func (b *Backend) updateUser(w http.ResponseWriter, r *http.Request) {
	var in api.UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido"})
		return
	}
	id := idParam(r)

	b.Lock()
	defer b.Unlock()
	for i, u := range b.Users {
		if u.ID != id {
			continue
		}
		b.Users[i] = api.User{ID: id, Names: in.Names, Email: in.Email, CareerID: in.CareerID, RoleID: in.RoleID}
		if in.Password != nil {
			b.Passwords[id] = *in.Password
		}
		// This endpoint answers with a bare status message.
		writeJSON(w, http.StatusOK, map[string]string{"mensaje": "Usuario actualizado"})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Usuario no encontrado"})
}

func (b *Backend) listResources(w http.ResponseWriter, r *http.Request) {
	subject, _ := strconv.Atoi(r.URL.Query().Get("materia"))
	b.Lock()
	out := []api.Resource{}
	for _, res := range b.Resources {
		if subject == 0 || res.SubjectID == subject {
			out = append(out, res)
		}
	}
	b.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getResource(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	b.Lock()
	defer b.Unlock()
	for _, res := range b.Resources {
		if res.ID == id {
			writeJSON(w, http.StatusOK, res)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Recurso no encontrado"})
}

func (b *Backend) listComments(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	b.Lock()
	out := []api.Comment{}
	for _, c := range b.Comments {
		if c.ResourceID == id {
			out = append(out, c)
		}
	}
	b.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) listReactions(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	b.Lock()
	out := []api.Reaction{}
	for _, re := range b.Reactions {
		if re.ResourceID == id {
			out = append(out, re)
		}
	}
	b.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// react applies the backend's toggle: same type removes, other type switches.
func (b *Backend) react(w http.ResponseWriter, r *http.Request) {
	var in api.Reaction
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido"})
		return
	}

	b.Lock()
	defer b.Unlock()
	for i, re := range b.Reactions {
		if re.UserID != in.UserID || re.ResourceID != in.ResourceID {
			continue
		}
		if re.Type == in.Type {
			b.Reactions = append(b.Reactions[:i], b.Reactions[i+1:]...)
		} else {
			b.Reactions[i].Type = in.Type
		}
		writeJSON(w, http.StatusOK, map[string]string{"mensaje": "ok"})
		return
	}
	b.Reactions = append(b.Reactions, in)
	writeJSON(w, http.StatusOK, map[string]string{"mensaje": "ok"})
}

func (b *Backend) listSubjects(w http.ResponseWriter, r *http.Request) {
	career, _ := strconv.Atoi(r.URL.Query().Get("carrera"))
	semester, _ := strconv.Atoi(r.URL.Query().Get("semestre"))
	b.Lock()
	out := []api.Subject{}
	for _, s := range b.Subjects {
		if (career == 0 || s.CareerID == career) && (semester == 0 || s.Semester == semester) {
			out = append(out, s)
		}
	}
	b.Unlock()
	writeJSON(w, http.StatusOK, out)
}
