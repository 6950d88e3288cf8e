package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kuromall/api/internal/platform/httpx"
)

const bearerPrefix = "Bearer "

// Claims is the JWT payload issued to API clients.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for the given principal. Used by the auth
// endpoint and by tests.
func IssueToken(secret, userID string, role Role, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Middleware verifies the bearer token and attaches the resulting
// identity to the request context. Requests without a valid token are
// rejected with 401.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(header, bearerPrefix) {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "missing bearer token", http.StatusUnauthorized))
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, bearerPrefix), claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "invalid bearer token", http.StatusUnauthorized))
				return
			}

			identity := Identity{
				UserID: claims.Subject,
				Role:   Role(claims.Role),
			}
			if identity.Role == "" {
				identity.Role = RoleUser
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireStaff rejects requests whose identity lacks back-office rights.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
			return
		}
		if !identity.IsStaff() {
			httpx.WriteError(r.Context(), w, httpx.NewError("forbidden", "staff role required", http.StatusForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WebhookSecret guards gateway callback endpoints with a shared secret
// header instead of a bearer token.
func WebhookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := strings.TrimSpace(r.Header.Get("X-Webhook-Secret"))
			if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "invalid webhook secret", http.StatusUnauthorized))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
