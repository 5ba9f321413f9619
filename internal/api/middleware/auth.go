package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stockdeck/stockdeck/internal/api/response"
	"github.com/stockdeck/stockdeck/internal/auth"
)

const identityKey contextKey = "identity"

// SessionCookie carries the bearer credential for browser clients.
const SessionCookie = "session_token"

// Authenticator resolves a raw bearer credential to an identity.
// Satisfied by *auth.Service.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*auth.Identity, error)
}

// Credential extracts the bearer credential from a request. The
// Authorization header takes precedence over the session cookie when both
// are present.
func Credential(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
	}

	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}

	return ""
}

// Auth is middleware for API routes: it resolves the request's credential
// to an identity or rejects with 401 JSON. Verification failures and
// missing credentials are indistinguishable to the caller.
func Auth(authenticator Authenticator) func(http.Handler) http.Handler {
	return authMiddleware(authenticator, func(w http.ResponseWriter, _ *http.Request) {
		response.Unauthorized(w)
	})
}

// PageAuth is middleware for page routes: unauthenticated requests are
// redirected to the login page instead of receiving JSON.
func PageAuth(authenticator Authenticator) func(http.Handler) http.Handler {
	return authMiddleware(authenticator, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
}

func authMiddleware(authenticator Authenticator, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken := Credential(r)
			if rawToken == "" {
				reject(w, r)
				return
			}

			identity, err := authenticator.Authenticate(r.Context(), rawToken)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthenticated) {
					reject(w, r)
					return
				}
				response.Error(w, http.StatusInternalServerError, "Authentication failed")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity retrieves the authenticated Identity from the request context.
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}
