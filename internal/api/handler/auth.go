package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/stockdeck/stockdeck/internal/api/middleware"
	"github.com/stockdeck/stockdeck/internal/api/response"
	"github.com/stockdeck/stockdeck/internal/auth"
)

type loginRequest struct {
	FirebaseToken string `json:"firebase_token"`
}

type statusUser struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type statusResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *statusUser `json:"user,omitempty"`
}

// AuthHandler handles login, logout and auth-status endpoints.
type AuthHandler struct {
	authenticator middleware.Authenticator
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authenticator middleware.Authenticator) *AuthHandler {
	return &AuthHandler{authenticator: authenticator}
}

// Login handles POST /login. The body carries a provider-issued ID token;
// on successful verification the token is set as the session cookie. The
// server keeps no session state, so logout is purely cookie removal and
// every later request re-verifies the token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	identity, err := h.authenticator.Authenticate(r.Context(), req.FirebaseToken)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			response.Error(w, http.StatusUnauthorized, "Invalid credential")
			return
		}
		slog.Error("login failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    req.FirebaseToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	response.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": statusUser{
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
		},
	})
}

// Logout handles POST /logout by expiring the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})

	response.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Status handles GET /api/auth/status. Unlike the protected endpoints it
// never returns 401; an invalid or missing credential reports
// authenticated=false.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	rawToken := middleware.Credential(r)
	if rawToken == "" {
		response.JSON(w, http.StatusOK, statusResponse{Authenticated: false})
		return
	}

	identity, err := h.authenticator.Authenticate(r.Context(), rawToken)
	if err != nil {
		response.JSON(w, http.StatusOK, statusResponse{Authenticated: false})
		return
	}

	response.JSON(w, http.StatusOK, statusResponse{
		Authenticated: true,
		User: &statusUser{
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
		},
	})
}
