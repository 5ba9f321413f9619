package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdeck/stockdeck/internal/api/handler"
	"github.com/stockdeck/stockdeck/internal/favorites"
)

func TestFavoritesList_Empty(t *testing.T) {
	identity := testIdentity()
	h := handler.NewFavoritesHandler(newMemoryFavorites())

	req := authed(httptest.NewRequest(http.MethodGet, "/api/favorites", nil))
	rec := httptest.NewRecorder()

	asUser(identity, h.List).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"favorites": []}`, rec.Body.String())
}

func TestFavoritesList_ReturnsInsertionOrder(t *testing.T) {
	identity := testIdentity()
	repo := newMemoryFavorites()

	base := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Add(context.Background(), &favorites.Favorite{
		UserID: identity.UserID, Ticker: "AAPL", CompanyName: "Apple Inc.", AddedAt: base,
	}))
	require.NoError(t, repo.Add(context.Background(), &favorites.Favorite{
		UserID: identity.UserID, Ticker: "TSLA", CompanyName: "Tesla, Inc.", AddedAt: base.Add(time.Minute),
	}))

	h := handler.NewFavoritesHandler(repo)

	req := authed(httptest.NewRequest(http.MethodGet, "/api/favorites", nil))
	rec := httptest.NewRecorder()

	asUser(identity, h.List).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Favorites []struct {
			Ticker      string `json:"ticker"`
			CompanyName string `json:"company_name"`
			AddedAt     string `json:"added_at"`
		} `json:"favorites"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Favorites, 2)

	assert.Equal(t, "AAPL", body.Favorites[0].Ticker)
	assert.Equal(t, "Apple Inc.", body.Favorites[0].CompanyName)
	assert.Equal(t, "2026-03-02T15:00:00Z", body.Favorites[0].AddedAt)
	assert.Equal(t, "TSLA", body.Favorites[1].Ticker)
}

func TestFavoritesAdd_Success(t *testing.T) {
	identity := testIdentity()
	repo := newMemoryFavorites()
	h := handler.NewFavoritesHandler(repo)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/favorites",
		strings.NewReader(`{"ticker": "aapl", "company_name": "Apple Inc."}`)))
	rec := httptest.NewRecorder()

	asUser(identity, h.Add).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true}`, rec.Body.String())

	stored, err := repo.List(context.Background(), identity.UserID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "AAPL", stored[0].Ticker, "ticker must be normalized to upper case")
}

func TestFavoritesAdd_Duplicate(t *testing.T) {
	identity := testIdentity()
	repo := newMemoryFavorites()
	require.NoError(t, repo.Add(context.Background(), &favorites.Favorite{
		UserID: identity.UserID, Ticker: "AAPL",
	}))

	h := handler.NewFavoritesHandler(repo)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/favorites",
		strings.NewReader(`{"ticker": "AAPL"}`)))
	rec := httptest.NewRecorder()

	asUser(identity, h.Add).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "Already in favorites or failed to add"}`, rec.Body.String())
}

func TestFavoritesAdd_MissingTicker(t *testing.T) {
	identity := testIdentity()
	h := handler.NewFavoritesHandler(newMemoryFavorites())

	req := authed(httptest.NewRequest(http.MethodPost, "/api/favorites",
		strings.NewReader(`{"ticker": "   "}`)))
	rec := httptest.NewRecorder()

	asUser(identity, h.Add).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "Ticker required"}`, rec.Body.String())
}

func TestFavoritesAdd_MalformedBody(t *testing.T) {
	identity := testIdentity()
	h := handler.NewFavoritesHandler(newMemoryFavorites())

	req := authed(httptest.NewRequest(http.MethodPost, "/api/favorites",
		strings.NewReader(`{not json`)))
	rec := httptest.NewRecorder()

	asUser(identity, h.Add).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFavoritesAdd_RepositoryFailure(t *testing.T) {
	identity := testIdentity()
	repo := newMemoryFavorites()
	repo.err = errors.New("connection refused")
	h := handler.NewFavoritesHandler(repo)

	req := authed(httptest.NewRequest(http.MethodPost, "/api/favorites",
		strings.NewReader(`{"ticker": "AAPL"}`)))
	rec := httptest.NewRecorder()

	asUser(identity, h.Add).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "Failed to add favorite"}`, rec.Body.String())
}

func TestFavoritesRemove_Success(t *testing.T) {
	identity := testIdentity()
	repo := newMemoryFavorites()
	require.NoError(t, repo.Add(context.Background(), &favorites.Favorite{
		UserID: identity.UserID, Ticker: "AAPL",
	}))

	h := handler.NewFavoritesHandler(repo)

	req := authed(httptest.NewRequest(http.MethodDelete, "/api/favorites",
		strings.NewReader(`{"ticker": "aapl"}`)))
	rec := httptest.NewRecorder()

	asUser(identity, h.Remove).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true}`, rec.Body.String())

	stored, err := repo.List(context.Background(), identity.UserID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestFavoritesRemove_NotTracked(t *testing.T) {
	identity := testIdentity()
	h := handler.NewFavoritesHandler(newMemoryFavorites())

	req := authed(httptest.NewRequest(http.MethodDelete, "/api/favorites",
		strings.NewReader(`{"ticker": "MSFT"}`)))
	rec := httptest.NewRecorder()

	asUser(identity, h.Remove).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "Not in favorites or failed to remove"}`, rec.Body.String())
}

func TestFavorites_ScopedToIdentity(t *testing.T) {
	alice := testIdentity()
	bob := testIdentity()

	repo := newMemoryFavorites()
	require.NoError(t, repo.Add(context.Background(), &favorites.Favorite{
		UserID: alice.UserID, Ticker: "AAPL",
	}))

	h := handler.NewFavoritesHandler(repo)

	// Bob's removal of a ticker only Alice tracks must fail, and Alice's
	// row must survive.
	req := authed(httptest.NewRequest(http.MethodDelete, "/api/favorites",
		strings.NewReader(`{"ticker": "AAPL"}`)))
	rec := httptest.NewRecorder()

	asUser(bob, h.Remove).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stored, err := repo.List(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
