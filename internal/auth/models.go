package auth

import "time"

// LoginRequest is what the login form posts.
type LoginRequest struct {
	Email    string `json:"correo"`
	Password string `json:"contrasena"`
}

// MeResponse describes the logged-in user. It never carries the password or
// the token.
type MeResponse struct {
	UserID    int       `json:"user_id"`
	Role      int       `json:"role"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Panels    []string  `json:"panels"`
	ExpiresAt time.Time `json:"expires_at"`
}
