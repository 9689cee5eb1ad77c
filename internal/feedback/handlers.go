package feedback

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/httputil"
	"github.com/EmpoweredVote/academic-portal/internal/identity"
	"github.com/EmpoweredVote/academic-portal/internal/listview"
	"github.com/EmpoweredVote/academic-portal/internal/reactions"
)

// CommentView is a comment plus what the viewer may do with it. The flags
// are hints for the UI; the backend re-checks every change.
type CommentView struct {
	api.Comment
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type textInput struct {
	Text   string `json:"texto"`
	Reason string `json:"motivo"`
	Type   string `json:"tipo"`
}

var commentAccessors = listview.Accessors[api.Comment]{
	Fields: func(c api.Comment) []interface{} { return []interface{}{c.Text} },
	Date:   func(c api.Comment) time.Time { return c.CreatedAt },
}

func fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAlreadyReported):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrNotOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrEmptyText), errors.Is(err, reactions.ErrInvalidType):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		httputil.Fail(w, err)
	}
}

func decodeText(w http.ResponseWriter, r *http.Request) (textInput, bool) {
	var in textInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid Request Format", http.StatusBadRequest)
		return in, false
	}
	return in, true
}

func ListCommentsHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	resourceID, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	col := ws.Comments.Get(resourceID)
	if err := col.EnsureLoaded(r.Context()); err != nil {
		fail(w, err)
		return
	}
	snap := col.Snapshot()
	page := listview.Apply(snap.Items, httputil.ListQuery(r), commentAccessors)

	views := make([]CommentView, len(page.Items))
	for i, c := range page.Items {
		views[i] = CommentView{
			Comment:   c,
			CanEdit:   identity.CanModify(ws.Session.Token, c.UserID),
			CanDelete: identity.CanModerate(ws.Session.Token, c.UserID),
		}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.View[CommentView]{
		Page: listview.Page[CommentView]{
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

func AddCommentHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	resourceID, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, ok := decodeText(w, r)
	if !ok {
		return
	}

	c, err := AddComment(r.Context(), ws, resourceID, in.Text)
	if err != nil {
		fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CommentView{Comment: c, CanEdit: true, CanDelete: true})
}

func EditCommentHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	resourceID, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := httputil.IDParam(r, "comment")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, ok := decodeText(w, r)
	if !ok {
		return
	}

	c, err := EditComment(r.Context(), ws, resourceID, id, in.Text)
	if err != nil {
		fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CommentView{Comment: c, CanEdit: true, CanDelete: true})
}

func DeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	resourceID, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := httputil.IDParam(r, "comment")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := DeleteComment(r.Context(), ws, resourceID, id); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ReactionsHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	resourceID, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, err := Reactions(r.Context(), ws, resourceID)
	if err != nil {
		fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

func ReactHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	resourceID, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, ok := decodeText(w, r)
	if !ok {
		return
	}
	give, err := reactions.Parse(in.Type)
	if err != nil {
		fail(w, err)
		return
	}

	state, err := React(r.Context(), ws, resourceID, give)
	if err != nil {
		fail(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

func ReportHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	resourceID, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, ok := decodeText(w, r)
	if !ok {
		return
	}

	rep, err := Report(r.Context(), ws, resourceID, in.Reason)
	if err != nil {
		fail(w, err)
		return
	}
	log.Printf("[feedback] user %d reported resource %d", ws.Session.UserID, resourceID)
	httputil.WriteJSON(w, http.StatusCreated, rep)
}

func WithdrawReportHandler(w http.ResponseWriter, r *http.Request) {
	ws, ok := httputil.Workspace(w, r)
	if !ok {
		return
	}
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := WithdrawReport(r.Context(), ws, id); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
