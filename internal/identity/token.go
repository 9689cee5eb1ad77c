// Package identity reads the claims embedded in a backend-issued JWT.
//
// The signature is NOT verified: the claims are only used to shape the UI
// (which panel to show, which comments display edit buttons). The backend
// re-checks authorization on every call it receives.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/EmpoweredVote/academic-portal/internal/api"
)

// ErrMalformedToken covers every way a token can fail to decode.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the subset of the JWT payload the portal uses.
type Claims struct {
	UserID    int       `json:"user_id"`
	Role      int       `json:"role"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Backends have used several spellings for the same claim over time.
var (
	userIDKeys = []string{"id", "id_usuario", "userId", "sub"}
	roleKeys   = []string{"rol", "id_rol", "role"}
	emailKeys  = []string{"correo", "email"}
	nameKeys   = []string{"nombres", "nombre", "name"}
)

// ParseClaims decodes the payload segment of token. It never panics; any
// structural problem yields ErrMalformedToken.
func ParseClaims(token string) (Claims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 || parts[1] == "" {
		return Claims{}, ErrMalformedToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return Claims{}, ErrMalformedToken
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Claims{}, ErrMalformedToken
	}

	userID, ok := intClaim(payload, userIDKeys)
	if !ok || userID <= 0 {
		return Claims{}, ErrMalformedToken
	}
	role, _ := intClaim(payload, roleKeys)

	c := Claims{
		UserID: userID,
		Role:   role,
		Email:  stringClaim(payload, emailKeys),
		Name:   stringClaim(payload, nameKeys),
	}
	if exp, ok := intClaim(payload, []string{"exp"}); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return c, nil
}

// Expired reports whether the token is past its exp claim. A token without
// exp is treated as expired.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt.IsZero() || !now.Before(c.ExpiresAt)
}

// IsAdmin reports whether the claims carry the administrator role.
func (c Claims) IsAdmin() bool { return c.Role == api.RoleAdmin }

// CanModify reports whether the bearer of token appears to own a record
// created by ownerID. Any decode failure means no.
func CanModify(token string, ownerID int) bool {
	c, err := ParseClaims(token)
	if err != nil {
		return false
	}
	return c.UserID == ownerID
}

// CanModerate is CanModify, also allowing administrators.
func CanModerate(token string, ownerID int) bool {
	c, err := ParseClaims(token)
	if err != nil {
		return false
	}
	return c.UserID == ownerID || c.IsAdmin()
}

func intClaim(payload map[string]interface{}, keys []string) (int, bool) {
	for _, k := range keys {
		switch v := payload[k].(type) {
		case float64:
			return int(v), true
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func stringClaim(payload map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if v, ok := payload[k].(string); ok {
			return v
		}
	}
	return ""
}
