package identity

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"world-quiz-service/internal/domain"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("secret")
	token, err := v.Issue("user-1", "Alice", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "user-1" || id.DisplayName != "Alice" {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewVerifier("secret")
	other, _ := NewVerifier("other").Issue("user-1", "Alice", time.Minute)
	expired, _ := v.Issue("user-1", "Alice", -time.Minute)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name": "x",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte("secret"))

	for name, token := range map[string]string{
		"wrong secret": other,
		"expired":      expired,
		"garbage":      "not-a-token",
		"no subject":   noSubject,
		"no expiry":    noExpiry,
	} {
		if _, err := v.Verify(token); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
}

func TestMissingTokenIsAnonymous(t *testing.T) {
	v := NewVerifier("secret")
	id, err := v.FromRequest(httptest.NewRequest("GET", "/ws", nil))
	if err != nil || !id.Anonymous() {
		t.Fatalf("expected anonymous identity, got %+v (%v)", id, err)
	}
}

func TestDisabledVerifierIgnoresTokens(t *testing.T) {
	v := NewVerifier("")
	id, err := v.Verify("anything")
	if err != nil || !id.Anonymous() {
		t.Fatalf("expected anonymous identity, got %+v (%v)", id, err)
	}
}

func TestFromRequestSources(t *testing.T) {
	v := NewVerifier("secret")
	token, _ := v.Issue("user-2", "", time.Minute)

	header := httptest.NewRequest("GET", "/api/leaderboard", nil)
	header.Header.Set("Authorization", "Bearer "+token)
	if id, err := v.FromRequest(header); err != nil || id.UserID != "user-2" {
		t.Fatalf("header: got %+v (%v)", id, err)
	}

	query := httptest.NewRequest("GET", "/ws?token="+token, nil)
	if id, err := v.FromRequest(query); err != nil || id.UserID != "user-2" {
		t.Fatalf("query: got %+v (%v)", id, err)
	}
}

func TestDisplayNameFallbacks(t *testing.T) {
	tests := []struct {
		claims jwt.MapClaims
		want   string
	}{
		{jwt.MapClaims{"name": "Ana", "email": "ana@example.com"}, "Ana"},
		{jwt.MapClaims{"user_metadata": map[string]interface{}{"name": "Bo"}}, "Bo"},
		{jwt.MapClaims{"email": "cy@example.com"}, "cy@example.com"},
		{jwt.MapClaims{}, ""},
	}
	for _, tt := range tests {
		if got := displayName(tt.claims); got != tt.want {
			t.Fatalf("displayName(%v) = %q, want %q", tt.claims, got, tt.want)
		}
	}
}
