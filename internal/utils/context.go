package utils

import (
	"context"

	"github.com/EmpoweredVote/academic-portal/internal/session"
	"github.com/EmpoweredVote/academic-portal/internal/workspace"
)

type contextKey string

const (
	ContextSessionKey   contextKey = "session"
	ContextWorkspaceKey contextKey = "workspace"
)

func WithSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, ContextSessionKey, s)
}

func GetSessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(ContextSessionKey).(session.Session)
	return s, ok
}

func WithWorkspace(ctx context.Context, w *workspace.Workspace) context.Context {
	return context.WithValue(ctx, ContextWorkspaceKey, w)
}

func GetWorkspaceFromContext(ctx context.Context) (*workspace.Workspace, bool) {
	w, ok := ctx.Value(ContextWorkspaceKey).(*workspace.Workspace)
	return w, ok && w != nil
}
