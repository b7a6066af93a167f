package middleware

import (
	"net/http"
	"strings"

	"github.com/kiranshivaraju/reelgen/internal/api/response"
	"golang.org/x/crypto/bcrypt"
)

// Auth checks the local API key. With no hash configured every caller is
// admitted.
type Auth struct {
	hash []byte
}

// NewAuth creates a new Auth middleware from a bcrypt hash of the API key.
func NewAuth(keyHash string) *Auth {
	var h []byte
	if keyHash != "" {
		h = []byte(keyHash)
	}
	return &Auth{hash: h}
}

// Enabled reports whether requests must present a key.
func (a *Auth) Enabled() bool { return a.hash != nil }

// Authenticate validates the Bearer token and records the caller's client id
// in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Enabled() {
			rawKey := extractBearerToken(r)
			if rawKey == "" {
				response.Error(w, http.StatusUnauthorized,
					"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
				return
			}
			if bcrypt.CompareHashAndPassword(a.hash, []byte(rawKey)) != nil {
				response.Error(w, http.StatusUnauthorized,
					"INVALID_TOKEN", "Invalid API key", nil)
				return
			}
		}

		next.ServeHTTP(w, WithClientID(r, remoteHost(r)))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
