package identity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func makeToken(t *testing.T, payload map[string]interface{}) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(raw) + ".sig"
}

func TestParseClaims(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token := makeToken(t, map[string]interface{}{
		"id":      12,
		"rol":     2,
		"correo":  "ana@uni.edu",
		"nombres": "Ana",
		"exp":     exp.Unix(),
	})

	c, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if c.UserID != 12 || c.Role != 2 || c.Email != "ana@uni.edu" || c.Name != "Ana" {
		t.Errorf("unexpected claims %+v", c)
	}
	if !c.ExpiresAt.Equal(exp) {
		t.Errorf("expected exp %v, got %v", exp, c.ExpiresAt)
	}
	if c.Expired(exp.Add(-time.Minute)) || !c.Expired(exp) {
		t.Error("expiry boundary is wrong")
	}
}

func TestParseClaimsAlternateSpellings(t *testing.T) {
	token := makeToken(t, map[string]interface{}{"id_usuario": "7", "id_rol": "1", "exp": 1})
	c, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("ParseClaims: %v", err)
	}
	if c.UserID != 7 || !c.IsAdmin() {
		t.Errorf("unexpected claims %+v", c)
	}
}

func TestMalformedTokensNeverGrantPermission(t *testing.T) {
	valid := makeToken(t, map[string]interface{}{"id": 5, "rol": 2})

	tokens := map[string]string{
		"empty":            "",
		"garbage":          "not-a-token",
		"two segments":     "a.b",
		"four segments":    "a.b.c.d",
		"bad base64":       "x.@@@.y",
		"not json":         "x." + base64.RawURLEncoding.EncodeToString([]byte("hello")) + ".y",
		"json array":       "x." + base64.RawURLEncoding.EncodeToString([]byte("[1,2]")) + ".y",
		"missing id":       makeToken(t, map[string]interface{}{"rol": 1}),
		"tampered payload": valid[:len(valid)-8] + "!!" + valid[len(valid)-6:],
		"empty payload":    "x..y",
	}

	for name, tok := range tokens {
		t.Run(name, func(t *testing.T) {
			if CanModify(tok, 5) {
				t.Error("malformed token granted modify permission")
			}
			if CanModerate(tok, 5) {
				t.Error("malformed token granted moderate permission")
			}
			if _, err := ParseClaims(tok); !errors.Is(err, ErrMalformedToken) {
				t.Errorf("expected ErrMalformedToken, got %v", err)
			}
		})
	}
}

func TestCanModify(t *testing.T) {
	student := makeToken(t, map[string]interface{}{"id": 5, "rol": 2})
	admin := makeToken(t, map[string]interface{}{"id": 1, "rol": 1})

	if !CanModify(student, 5) {
		t.Error("owner should be able to modify")
	}
	if CanModify(student, 6) {
		t.Error("non-owner should not modify")
	}
	if CanModify(admin, 5) {
		t.Error("modify is owner-only")
	}
	if !CanModerate(admin, 5) {
		t.Error("admin should be able to moderate")
	}
}

func TestMissingExpIsExpired(t *testing.T) {
	c, err := ParseClaims(makeToken(t, map[string]interface{}{"id": 3}))
	if err != nil {
		t.Fatal(err)
	}
	if !c.Expired(time.Now()) {
		t.Error("token without exp should count as expired")
	}
}
