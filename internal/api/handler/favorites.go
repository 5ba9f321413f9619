package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/stockdeck/stockdeck/internal/api/middleware"
	"github.com/stockdeck/stockdeck/internal/api/response"
	"github.com/stockdeck/stockdeck/internal/api/validation"
	"github.com/stockdeck/stockdeck/internal/favorites"
)

type favoriteResponse struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
	AddedAt     string `json:"added_at"`
}

type addFavoriteRequest struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
}

type removeFavoriteRequest struct {
	Ticker string `json:"ticker"`
}

// FavoritesHandler handles the favorites CRUD endpoints. All operations are
// scoped to the authenticated identity; client-supplied user IDs are never
// consulted.
type FavoritesHandler struct {
	repo favorites.Repository
}

// NewFavoritesHandler creates a new FavoritesHandler.
func NewFavoritesHandler(repo favorites.Repository) *FavoritesHandler {
	return &FavoritesHandler{repo: repo}
}

// List handles GET /api/favorites.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	favs, err := h.repo.List(r.Context(), identity.UserID)
	if err != nil {
		slog.Error("failed to list favorites", "error", err, "user", identity.UserID)
		response.Error(w, http.StatusInternalServerError, "Failed to load favorites")
		return
	}

	items := make([]favoriteResponse, 0, len(favs))
	for _, f := range favs {
		items = append(items, favoriteResponse{
			Ticker:      f.Ticker,
			CompanyName: f.CompanyName,
			AddedAt:     f.AddedAt.UTC().Format(time.RFC3339),
		})
	}

	response.JSON(w, http.StatusOK, map[string]any{"favorites": items})
}

// Add handles POST /api/favorites. Adding a ticker the user already tracks
// is a 400, reported distinctly from validation failures so the frontend
// can message it.
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req addFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request")
		return
	}

	ticker, msg := validation.Ticker(req.Ticker)
	if msg != "" {
		response.Error(w, http.StatusBadRequest, msg)
		return
	}

	err := h.repo.Add(r.Context(), &favorites.Favorite{
		UserID:      identity.UserID,
		Ticker:      ticker,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		if errors.Is(err, favorites.ErrAlreadyExists) {
			response.Error(w, http.StatusBadRequest, "Already in favorites or failed to add")
			return
		}
		slog.Error("failed to add favorite", "error", err, "ticker", ticker)
		response.Error(w, http.StatusInternalServerError, "Failed to add favorite")
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Remove handles DELETE /api/favorites.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req removeFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request")
		return
	}

	ticker, msg := validation.Ticker(req.Ticker)
	if msg != "" {
		response.Error(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.repo.Remove(r.Context(), identity.UserID, ticker); err != nil {
		if errors.Is(err, favorites.ErrNotFound) {
			response.Error(w, http.StatusBadRequest, "Not in favorites or failed to remove")
			return
		}
		slog.Error("failed to remove favorite", "error", err, "ticker", ticker)
		response.Error(w, http.StatusInternalServerError, "Failed to remove favorite")
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
