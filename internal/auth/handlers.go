package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/identity"
	"github.com/EmpoweredVote/academic-portal/internal/middleware"
	"github.com/EmpoweredVote/academic-portal/internal/session"
	"github.com/EmpoweredVote/academic-portal/internal/utils"
)

func sessionCookie(value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   SecureCookies,
	}
	if value == "" {
		c.MaxAge = -1
	} else {
		c.Expires = expires
	}
	return c
}

func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid Data", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	token, err := Backend.Login(r.Context(), api.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			http.Error(w, "Invalid Credentials", http.StatusUnauthorized)
			return
		}
		log.Printf("[auth] login for %s: %v", req.Email, err)
		http.Error(w, "Login service unavailable", http.StatusBadGateway)
		return
	}

	s, err := Sessions.Open(r.Context(), token)
	switch {
	case errors.Is(err, identity.ErrMalformedToken), errors.Is(err, session.ErrExpired):
		log.Printf("[auth] backend issued an unusable token for %s: %v", req.Email, err)
		http.Error(w, "Invalid token from backend", http.StatusBadGateway)
		return
	case err != nil:
		log.Printf("[auth] open session for %s: %v", req.Email, err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, sessionCookie(s.ID, s.ExpiresAt))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(meFor(s, token))
}

func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := utils.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Couldn't find session", http.StatusUnauthorized)
		return
	}

	if err := Sessions.Close(r.Context(), s.ID); err != nil {
		log.Printf("[auth] logout %s: %v", s.ID, err)
		http.Error(w, "Failed to close session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, sessionCookie("", time.Time{}))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Logout successful\n"))
}

func MeHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := utils.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Couldn't find session", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(meFor(s, s.Token))
}

func meFor(s session.Session, token string) MeResponse {
	me := MeResponse{
		UserID:    s.UserID,
		Role:      s.Role,
		Email:     s.Email,
		Panels:    s.Panels,
		ExpiresAt: s.ExpiresAt,
	}
	if claims, err := identity.ParseClaims(token); err == nil {
		me.Name = claims.Name
	}
	return me
}
