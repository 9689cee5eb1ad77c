package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/EmpoweredVote/academic-portal/internal/session"
	"github.com/EmpoweredVote/academic-portal/internal/utils"
	"github.com/EmpoweredVote/academic-portal/internal/workspace"
	"github.com/go-chi/chi/v5"
)

// SessionCookie is the cookie carrying the gateway session id.
const SessionCookie = "session_id"

type SessionFetcher interface {
	Get(ctx context.Context, id string) (session.Session, error)
}

func SessionMiddleware(fetcher SessionFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil {
				http.Error(w, "Couldn't find cookie", http.StatusUnauthorized)
				return
			}

			s, err := fetcher.Get(r.Context(), cookie.Value)
			if errors.Is(err, session.ErrExpired) {
				http.Error(w, "Session expired", http.StatusUnauthorized)
				return
			}
			if err != nil {
				http.Error(w, "Couldn't find session", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithSession(r.Context(), s)))
		})
	}
}

// PanelMiddleware lets a request through only if its session may open panel.
// It must run after SessionMiddleware.
func PanelMiddleware(panel string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := utils.GetSessionFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized: missing session in context", http.StatusUnauthorized)
				return
			}

			if !s.HasPanel(panel) {
				http.Error(w, "Forbidden: "+panel+" access required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WorkspaceMiddleware attaches the session's workspace to the request. It
// must run after SessionMiddleware.
func WorkspaceMiddleware(hub *workspace.Hub) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := utils.GetSessionFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized: missing session in context", http.StatusUnauthorized)
				return
			}
			ws := hub.For(s)
			next.ServeHTTP(w, r.WithContext(utils.WithWorkspace(r.Context(), ws)))
		})
	}
}

// PanelStack is the middleware chain every panel route runs behind: a live
// session, the panel's role gate, then the session's workspace.
func PanelStack(fetcher SessionFetcher, hub *workspace.Hub, panel string) chi.Middlewares {
	return chi.Middlewares{
		SessionMiddleware(fetcher),
		PanelMiddleware(panel),
		WorkspaceMiddleware(hub),
	}
}

// CORSMiddleware echoes allowed origins back with credentials enabled.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Credentials are only allowed for listed origins.
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, Authorization")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
