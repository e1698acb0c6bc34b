// Package identity turns hosted-auth JWTs into an optional session identity.
package identity

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"world-quiz-service/internal/domain"
)

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a verifier. With an empty secret every caller is anonymous.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Enabled reports whether tokens are verified at all.
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

// FromRequest reads the token from the Authorization header or the token query
// parameter (browsers cannot set headers on WebSocket upgrades). No token means
// an anonymous identity; a bad token is ErrUnauthenticated.
func (v *Verifier) FromRequest(r *http.Request) (domain.Identity, error) {
	return v.Verify(tokenFromRequest(r))
}

// Verify validates raw and extracts the user id and display name.
func (v *Verifier) Verify(raw string) (domain.Identity, error) {
	if raw == "" || !v.Enabled() {
		return domain.Identity{}, nil
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing subject", domain.ErrUnauthenticated)
	}
	return domain.Identity{UserID: sub, DisplayName: displayName(claims)}, nil
}

// Issue signs a token for userID that expires after ttl. A negative ttl yields
// an already expired token. Used by local tooling and tests.
func (v *Verifier) Issue(userID, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"name": name,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// displayName prefers name, then user_metadata.name, then the email.
func displayName(claims jwt.MapClaims) string {
	if name, _ := claims["name"].(string); name != "" {
		return name
	}
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		if name, _ := meta["name"].(string); name != "" {
			return name
		}
	}
	email, _ := claims["email"].(string)
	return email
}
