package portaltest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/middleware"
	"github.com/EmpoweredVote/academic-portal/internal/session"
)

// Login opens a session for userID with role and returns the cookie a
// browser would send back.
func Login(t testing.TB, p *session.Provider, userID, role int) (session.Session, *http.Cookie) {
	t.Helper()
	s, err := p.Open(context.Background(), Token(userID, role, time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s, &http.Cookie{Name: middleware.SessionCookie, Value: s.ID}
}
