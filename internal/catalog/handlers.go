package catalog

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/httputil"
	"github.com/EmpoweredVote/academic-portal/internal/listview"
	"github.com/EmpoweredVote/academic-portal/internal/workspace"
)

var careerAccessors = listview.Accessors[api.Career]{
	Fields: func(c api.Career) []interface{} { return []interface{}{c.Name, c.ID} },
	Name:   func(c api.Career) string { return c.Name },
}

var subjectAccessors = listview.Accessors[api.Subject]{
	Fields: func(s api.Subject) []interface{} { return []interface{}{s.Name, s.Semester} },
	Name:   func(s api.Subject) string { return s.Name },
}

var resourceAccessors = listview.Accessors[api.Resource]{
	Fields: func(r api.Resource) []interface{} { return []interface{}{r.Title, r.Theme} },
	Name:   func(r api.Resource) string { return r.Title },
}

// ListCareersHandler returns every career with its semester range.
func ListCareersHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	if err := ws.RefreshCareers(r.Context()); err != nil {
		httputil.Fail(w, err)
		return
	}

	q := httputil.ListQuery(r)
	if r.URL.Query().Get("sort") == "" {
		q.Sort = listview.SortNameAsc
	}
	snap := ws.Careers.Snapshot()
	page := listview.Apply(snap.Items, q, careerAccessors)

	out := make([]CareerView, len(page.Items))
	for i, c := range page.Items {
		out[i] = CareerView{Career: c, Semesters: SemesterRange(c.Type)}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":       out,
		"page":        page.Page,
		"total_pages": page.TotalPages,
		"window":      page.Window,
		"loading":     snap.Loading,
	})
}

// CareerSemestersHandler returns the semesters of one career.
func CareerSemestersHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	career, ok := findCareer(w, r, ws)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SemesterRange(career.Type))
}

// ListSubjectsHandler lists the subjects of a career, optionally narrowed to
// one semester of its range.
func ListSubjectsHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	career, ok := findCareer(w, r, ws)
	if !ok {
		return
	}

	semester, err := httputil.QueryInt(r, "semester")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if semester != 0 && !inRange(SemesterRange(career.Type), semester) {
		http.Error(w, "Semester "+strconv.Itoa(semester)+" is not part of this career", http.StatusBadRequest)
		return
	}

	col := ws.Subjects.Get(workspace.SubjectScope{CareerID: career.ID, Semester: semester})
	httputil.ServeView(w, r, col, subjectAccessors)
}

// ListResourcesHandler selects a subject and lists its resources. Passing
// refresh=1 reloads from the backend right away.
func ListResourcesHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	subjectID, err := httputil.IDParam(r, "subject")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	force := r.URL.Query().Get("refresh") == "1"
	col, err := ws.SelectSubject(r.Context(), subjectID, force)
	if err != nil {
		httputil.Fail(w, err)
		return
	}

	snap := col.Snapshot()
	page := listview.Apply(snap.Items, httputil.ListQuery(r), resourceAccessors)
	views := make([]ResourceView, len(page.Items))
	for i, res := range page.Items {
		views[i] = NewResourceView(res)
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.View[ResourceView]{
		Page: listview.Page[ResourceView]{
			Items:      views,
			Page:       page.Page,
			PageSize:   page.PageSize,
			TotalItems: page.TotalItems,
			TotalPages: page.TotalPages,
			Window:     page.Window,
		},
		Loading: snap.Loading,
		Error:   snap.Error,
		Message: snap.Message,
	})
}

// GetResourceHandler returns one resource.
func GetResourceHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := fetchResource(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NewResourceView(res))
}

// DownloadHandler redirects to a URL that makes the browser save the file.
func DownloadHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := fetchResource(w, r)
	if !ok {
		return
	}
	if res.URL == "" {
		http.Error(w, "Resource has no file", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, DownloadURL(res.URL), http.StatusFound)
}

// CreateResourceHandler uploads a resource to a subject.
func CreateResourceHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	subjectID, err := httputil.IDParam(r, "subject")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, ok := decodeResource(w, r)
	if !ok {
		return
	}

	col := ws.Resources.Get(subjectID)
	created, err := col.Create(r.Context(), in.resource(0, subjectID))
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	log.Printf("[catalog] user %d uploaded %q to subject %d", ws.Session.UserID, created.Title, subjectID)
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"resource": NewResourceView(created),
		"message":  col.Snapshot().Message,
	})
}

// UpdateResourceHandler edits a resource of a subject.
func UpdateResourceHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	subjectID, err := httputil.IDParam(r, "subject")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, ok := decodeResource(w, r)
	if !ok {
		return
	}

	col := ws.Resources.Get(subjectID)
	if err := col.EnsureLoaded(r.Context()); err != nil {
		httputil.Fail(w, err)
		return
	}
	updated, err := col.Update(r.Context(), in.resource(id, subjectID))
	if err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"resource": NewResourceView(updated),
		"message":  col.Snapshot().Message,
	})
}

// DeleteResourceHandler removes a resource from a subject.
func DeleteResourceHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	subjectID, err := httputil.IDParam(r, "subject")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	col := ws.Resources.Get(subjectID)
	if err := col.EnsureLoaded(r.Context()); err != nil {
		httputil.Fail(w, err)
		return
	}
	if _, found := col.Find(strconv.Itoa(id)); !found {
		http.Error(w, "Resource not found", http.StatusNotFound)
		return
	}
	if err := col.Remove(r.Context(), strconv.Itoa(id)); err != nil {
		httputil.Fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": col.Snapshot().Message})
}

func (in ResourceInput) resource(id, subjectID int) api.Resource {
	return api.Resource{
		ID:         id,
		Title:      strings.TrimSpace(in.Title),
		Theme:      strings.TrimSpace(in.Theme),
		CategoryID: in.CategoryID,
		URL:        strings.TrimSpace(in.URL),
		SubjectID:  subjectID,
	}
}

func decodeResource(w http.ResponseWriter, r *http.Request) (ResourceInput, bool) {
	var in ResourceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid Request Format", http.StatusBadRequest)
		return in, false
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.URL) == "" {
		http.Error(w, "Title and URL are required", http.StatusBadRequest)
		return in, false
	}
	return in, true
}

func fetchResource(w http.ResponseWriter, r *http.Request) (api.Resource, bool) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return api.Resource{}, false
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return api.Resource{}, false
	}
	res, err := ws.Client.GetResource(r.Context(), id)
	if err != nil {
		httputil.Fail(w, err)
		return api.Resource{}, false
	}
	return res, true
}

func findCareer(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) (api.Career, bool) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return api.Career{}, false
	}
	if err := ws.Careers.EnsureLoaded(r.Context()); err != nil {
		httputil.Fail(w, err)
		return api.Career{}, false
	}
	career, found := ws.Careers.Find(strconv.Itoa(id))
	if !found {
		http.Error(w, "Career not found", http.StatusNotFound)
		return api.Career{}, false
	}
	return career, true
}

func inRange(semesters []int, s int) bool {
	for _, v := range semesters {
		if v == s {
			return true
		}
	}
	return false
}
