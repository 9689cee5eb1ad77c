package auth

import (
	"log"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/session"
)

// Sessions owns every token the gateway holds.
var Sessions *session.Provider

// Backend forwards credentials to the REST backend.
var Backend *api.Client

// SecureCookies marks the session cookie Secure; off for local HTTP.
var SecureCookies bool

func Init(p *session.Provider, backend *api.Client, secure bool) {
	Sessions = p
	Backend = backend
	SecureCookies = secure
	log.Printf("[auth] forwarding logins to %s", backend.BaseURL())
}
