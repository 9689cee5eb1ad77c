// Package httputil holds the small helpers every panel handler shares.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/listview"
	"github.com/EmpoweredVote/academic-portal/internal/remote"
	"github.com/EmpoweredVote/academic-portal/internal/utils"
	"github.com/EmpoweredVote/academic-portal/internal/workspace"
	"github.com/go-chi/chi/v5"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[http] encode response: %v", err)
	}
}

// StatusFor maps an error from a collection or the backend to a status code.
func StatusFor(err error) int {
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status >= http.StatusBadRequest {
			return apiErr.Status
		}
		// Errors embedded in a 200 body are the backend refusing the request.
		return http.StatusUnprocessableEntity
	case errors.Is(err, remote.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrNotSupported):
		return http.StatusMethodNotAllowed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// Fail writes err with the status StatusFor picks.
func Fail(w http.ResponseWriter, err error) {
	var apiErr *api.Error
	msg := err.Error()
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	http.Error(w, msg, StatusFor(err))
}

// ListQuery reads q, sort, page and page_size from the query string.
func ListQuery(r *http.Request) listview.Query {
	v := r.URL.Query()
	page, _ := strconv.Atoi(v.Get("page"))
	size, _ := strconv.Atoi(v.Get("page_size"))
	return listview.Query{
		Text:     v.Get("q"),
		Sort:     listview.ParseSort(v.Get("sort")),
		Page:     page,
		PageSize: size,
	}
}

// IDParam parses a positive integer URL parameter.
func IDParam(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// QueryInt parses an optional integer query parameter; absent means 0.
func QueryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

// Workspace returns the request's workspace, writing a 401 if it is missing.
func Workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, ok := utils.GetWorkspaceFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: missing session in context", http.StatusUnauthorized)
	}
	return ws, ok
}

// View is a list page plus the collection's status fields.
type View[T any] struct {
	listview.Page[T]
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ServeView loads col if needed and writes the page the request asks for.
// refresh=1 forces a reload first.
func ServeView[T any](w http.ResponseWriter, r *http.Request, col *remote.Collection[T], acc listview.Accessors[T]) {
	start := time.Now()
	load := col.EnsureLoaded
	if r.URL.Query().Get("refresh") == "1" {
		load = col.Reload
	}
	if err := load(r.Context()); err != nil {
		Fail(w, err)
		return
	}
	snap := col.Snapshot()
	view := View[T]{
		Page:    listview.Apply(snap.Items, ListQuery(r), acc),
		Loading: snap.Loading,
		Error:   snap.Error,
		Message: snap.Message,
	}
	AddServerTiming(w, [2]string{"view", fmt.Sprintf("%.1f", float64(time.Since(start).Microseconds())/1000)})
	WriteJSON(w, http.StatusOK, view)
}

// AddServerTiming appends Server-Timing metrics, e.g. {{"view","1.2"}}.
func AddServerTiming(w http.ResponseWriter, kv ...[2]string) {
	if len(kv) == 0 {
		return
	}
	val := ""
	for i, p := range kv {
		if i > 0 {
			val += ", "
		}
		val += fmt.Sprintf("%s;dur=%s", p[0], p[1])
	}
	w.Header().Add("Server-Timing", val)
}
