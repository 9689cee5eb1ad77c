// Package feedback covers what students leave on a resource: comments,
// reactions and reports.
package feedback

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/identity"
	"github.com/EmpoweredVote/academic-portal/internal/reactions"
	"github.com/EmpoweredVote/academic-portal/internal/remote"
	"github.com/EmpoweredVote/academic-portal/internal/workspace"
)

var (
	ErrAlreadyReported = errors.New("you already reported this resource")
	ErrNotOwner        = errors.New("only the author can change this")
	ErrEmptyText       = errors.New("text is required")
)

// AlreadyReported reports whether userID has a report on resourceID.
func AlreadyReported(reports []api.Report, userID, resourceID int) bool {
	for _, r := range reports {
		if r.UserID == userID && r.ResourceID == resourceID {
			return true
		}
	}
	return false
}

// Report files a report against resourceID unless the user already did.
func Report(ctx context.Context, ws *workspace.Workspace, resourceID int, reason string) (api.Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return api.Report{}, ErrEmptyText
	}
	if err := ws.Reports.EnsureLoaded(ctx); err != nil {
		return api.Report{}, err
	}
	if AlreadyReported(ws.Reports.Snapshot().Items, ws.Session.UserID, resourceID) {
		return api.Report{}, ErrAlreadyReported
	}

	return ws.Reports.Create(ctx, api.Report{
		ResourceID: resourceID,
		UserID:     ws.Session.UserID,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	})
}

// WithdrawReport deletes a report filed by the user, or any report for admins.
func WithdrawReport(ctx context.Context, ws *workspace.Workspace, id int) error {
	if err := ws.Reports.EnsureLoaded(ctx); err != nil {
		return err
	}
	rep, ok := ws.Reports.Find(strconv.Itoa(id))
	if !ok {
		return remote.ErrNotFound
	}
	if !identity.CanModerate(ws.Session.Token, rep.UserID) {
		return ErrNotOwner
	}
	return ws.Reports.Remove(ctx, strconv.Itoa(id))
}

// AddComment posts text on resourceID as the session's user.
func AddComment(ctx context.Context, ws *workspace.Workspace, resourceID int, text string) (api.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return api.Comment{}, ErrEmptyText
	}
	return ws.Comments.Get(resourceID).Create(ctx, api.Comment{
		ResourceID: resourceID,
		UserID:     ws.Session.UserID,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	})
}

// EditComment changes the text of the user's own comment.
func EditComment(ctx context.Context, ws *workspace.Workspace, resourceID, id int, text string) (api.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return api.Comment{}, ErrEmptyText
	}
	col := ws.Comments.Get(resourceID)
	c, err := findComment(ctx, col, id)
	if err != nil {
		return api.Comment{}, err
	}
	if !identity.CanModify(ws.Session.Token, c.UserID) {
		return api.Comment{}, ErrNotOwner
	}
	c.Text = text
	return col.Update(ctx, c)
}

// DeleteComment removes the user's own comment, or any comment for admins.
func DeleteComment(ctx context.Context, ws *workspace.Workspace, resourceID, id int) error {
	col := ws.Comments.Get(resourceID)
	c, err := findComment(ctx, col, id)
	if err != nil {
		return err
	}
	if !identity.CanModerate(ws.Session.Token, c.UserID) {
		return ErrNotOwner
	}
	return col.Remove(ctx, strconv.Itoa(id))
}

func findComment(ctx context.Context, col *remote.Collection[api.Comment], id int) (api.Comment, error) {
	if err := col.EnsureLoaded(ctx); err != nil {
		return api.Comment{}, err
	}
	c, ok := col.Find(strconv.Itoa(id))
	if !ok {
		return api.Comment{}, remote.ErrNotFound
	}
	return c, nil
}

// Reactions returns the user's state on resourceID.
func Reactions(ctx context.Context, ws *workspace.Workspace, resourceID int) (reactions.State, error) {
	col := ws.Reactions.Get(resourceID)
	if err := col.EnsureLoaded(ctx); err != nil {
		return reactions.State{}, err
	}
	return reactions.Tally(col.Snapshot().Items, ws.Session.UserID), nil
}

// React toggles give on resourceID: the local mirror moves to the toggled
// state at once, the backend applies the same toggle, and the mirror is then
// reconciled. The returned state is the reconciled one.
func React(ctx context.Context, ws *workspace.Workspace, resourceID int, give api.ReactionType) (reactions.State, error) {
	col := ws.Reactions.Get(resourceID)
	if err := col.EnsureLoaded(ctx); err != nil {
		return reactions.State{}, err
	}

	uid := ws.Session.UserID
	before := reactions.Tally(col.Snapshot().Items, uid)
	after := reactions.Toggle(before, give)
	mine := api.Reaction{UserID: uid, ResourceID: resourceID, Type: after.Mine}

	var patch func([]api.Reaction) []api.Reaction
	switch {
	case after.Mine == "":
		patch = col.Without(strconv.Itoa(uid))
	case before.Mine == "":
		patch = remote.Append(mine)
	default:
		patch = col.Replace(mine)
	}

	err := col.Mutate(ctx, patch, func(ctx context.Context) error {
		return ws.Client.React(ctx, api.Reaction{UserID: uid, ResourceID: resourceID, Type: give})
	}, "")
	if err != nil {
		return before, err
	}
	return reactions.Tally(col.Snapshot().Items, uid), nil
}
