package admin

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/httputil"
	"github.com/EmpoweredVote/academic-portal/internal/listview"
)

var userAccessors = listview.Accessors[api.User]{
	Fields: func(u api.User) []interface{} { return []interface{}{u.Names, u.Email, u.ID} },
	Name:   func(u api.User) string { return u.Names },
}

var roleAccessors = listview.Accessors[api.Role]{
	Fields: func(r api.Role) []interface{} { return []interface{}{r.Name, r.Description} },
	Name:   func(r api.Role) string { return r.Name },
}

var reportAccessors = listview.Accessors[api.Report]{
	Fields: func(r api.Report) []interface{} { return []interface{}{r.Reason, r.ResourceID, r.UserID} },
	Date:   func(r api.Report) time.Time { return r.CreatedAt },
}

var logAccessors = listview.Accessors[api.LogEntry]{
	Fields: func(l api.LogEntry) []interface{} { return []interface{}{l.Action, l.Detail, l.UserID} },
	Date:   func(l api.LogEntry) time.Time { return l.CreatedAt },
}

// fail maps the admin sentinels before falling back to httputil.Fail.
func fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProtectedRole), errors.Is(err, ErrSelfDelete):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrMissingFields), errors.Is(err, ErrPasswordRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		httputil.Fail(w, err)
	}
}

func ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	httputil.ServeView(w, r, ws.Users, userAccessors)
}

func CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}

	var form UserForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, "Invalid Request Format", http.StatusBadRequest)
		return
	}
	in, err := BuildUserCreate(form)
	if err != nil {
		fail(w, err)
		return
	}

	created, err := CreateUser(r.Context(), ws, in)
	if err != nil {
		fail(w, err)
		return
	}
	log.Printf("[admin] user %d created user %q", ws.Session.UserID, created.Email)
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"user":    created,
		"message": ws.Users.Snapshot().Message,
	})
}

func UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var form UserForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, "Invalid Request Format", http.StatusBadRequest)
		return
	}
	in, err := BuildUserUpdate(form)
	if err != nil {
		fail(w, err)
		return
	}

	updated, err := UpdateUser(r.Context(), ws, id, in)
	if err != nil {
		fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":    updated,
		"message": ws.Users.Snapshot().Message,
	})
}

func DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := DeleteUser(r.Context(), ws, id); err != nil {
		fail(w, err)
		return
	}
	log.Printf("[admin] user %d deleted user %d", ws.Session.UserID, id)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": ws.Users.Snapshot().Message})
}

func ListRolesHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	httputil.ServeView(w, r, ws.Roles, roleAccessors)
}

func decodeRole(w http.ResponseWriter, r *http.Request) (api.Role, bool) {
	var role api.Role
	if err := json.NewDecoder(r.Body).Decode(&role); err != nil {
		http.Error(w, "Invalid Request Format", http.StatusBadRequest)
		return role, false
	}
	role.Name = strings.TrimSpace(role.Name)
	role.Description = strings.TrimSpace(role.Description)
	if role.Name == "" {
		http.Error(w, "Role name is required", http.StatusBadRequest)
		return role, false
	}
	return role, true
}

func CreateRoleHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	role, ok := decodeRole(w, r)
	if !ok {
		return
	}
	role.ID = 0

	created, err := ws.Roles.Create(r.Context(), role)
	if err != nil {
		fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"role":    created,
		"message": ws.Roles.Snapshot().Message,
	})
}

func UpdateRoleHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := CheckRoleEditable(id); err != nil {
		fail(w, err)
		return
	}
	role, ok := decodeRole(w, r)
	if !ok {
		return
	}
	role.ID = id

	if err := ws.Roles.EnsureLoaded(r.Context()); err != nil {
		fail(w, err)
		return
	}
	updated, err := ws.Roles.Update(r.Context(), role)
	if err != nil {
		fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"role":    updated,
		"message": ws.Roles.Snapshot().Message,
	})
}

func DeleteRoleHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := CheckRoleEditable(id); err != nil {
		fail(w, err)
		return
	}

	if err := ws.Roles.Remove(r.Context(), strconv.Itoa(id)); err != nil {
		fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": ws.Roles.Snapshot().Message})
}

func ListReportsHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	httputil.ServeView(w, r, ws.Reports, reportAccessors)
}

func DeleteReportHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := ws.Reports.Remove(r.Context(), strconv.Itoa(id)); err != nil {
		fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": ws.Reports.Snapshot().Message})
}

func ListLogsHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	httputil.ServeView(w, r, ws.Logs, logAccessors)
}
