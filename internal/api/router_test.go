package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdeck/stockdeck/internal/api"
	"github.com/stockdeck/stockdeck/internal/auth"
	"github.com/stockdeck/stockdeck/internal/config"
	"github.com/stockdeck/stockdeck/internal/dashboard"
	"github.com/stockdeck/stockdeck/internal/favorites"
	"github.com/stockdeck/stockdeck/internal/market"
)

const testToken = "valid-test-token"

type stubAuthenticator struct{}

func (stubAuthenticator) Authenticate(_ context.Context, rawToken string) (*auth.Identity, error) {
	if rawToken == testToken {
		return &auth.Identity{UserID: uuid.New(), Subject: "sub-1", Email: "casey@example.com"}, nil
	}
	return nil, auth.ErrUnauthenticated
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(_ context.Context) error { return p.err }

type stubFavorites struct{}

func (stubFavorites) List(_ context.Context, _ uuid.UUID) ([]favorites.Favorite, error) {
	return []favorites.Favorite{}, nil
}
func (stubFavorites) Add(_ context.Context, _ *favorites.Favorite) error    { return nil }
func (stubFavorites) Remove(_ context.Context, _ uuid.UUID, _ string) error { return nil }

type stubMarket struct{}

func (stubMarket) Search(_ context.Context, _ string) ([]market.SearchResult, error) {
	return []market.SearchResult{}, nil
}
func (stubMarket) MajorIndexes(_ context.Context) ([]market.Quote, error) {
	return []market.Quote{}, nil
}

type stubAggregator struct{}

func (stubAggregator) FavoritesWithQuotes(_ context.Context, _ uuid.UUID) ([]dashboard.Entry, error) {
	return []dashboard.Entry{}, nil
}

func testRouter() http.Handler {
	return api.NewRouter(api.RouterDeps{
		Config: &config.Config{
			Version:           "test",
			FirebaseProjectID: "stockdeck-test",
		},
		Authenticator: stubAuthenticator{},
		DBPinger:      stubPinger{},
		Favorites:     stubFavorites{},
		Market:        stubMarket{},
		Aggregator:    stubAggregator{},
	})
}

func get(t *testing.T, router http.Handler, path string, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_ProtectedRoutesRequireAuth(t *testing.T) {
	router := testRouter()

	protected := []string{
		"/api/favorites",
		"/api/search-stocks?q=apple",
		"/api/dashboard-favorites",
		"/api/major-indexes",
		"/api/firebase-config",
		"/api/vapid-public-key",
	}

	for _, path := range protected {
		rec := get(t, router, path, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "unauthenticated GET %s", path)
		assert.JSONEq(t, `{"error": "Unauthorized"}`, rec.Body.String(), "GET %s", path)

		rec = get(t, router, path, true)
		assert.Equal(t, http.StatusOK, rec.Code, "authenticated GET %s", path)
	}
}

func TestRouter_PublicRoutes(t *testing.T) {
	router := testRouter()

	for _, path := range []string{"/health", "/api/auth/status", "/api/firebase-config-public", "/login"} {
		rec := get(t, router, path, false)
		assert.Equal(t, http.StatusOK, rec.Code, "GET %s must not require auth", path)
	}
}

func TestRouter_HealthReportsDegradedDatabase(t *testing.T) {
	router := api.NewRouter(api.RouterDeps{
		Config:        &config.Config{Version: "test"},
		Authenticator: stubAuthenticator{},
		DBPinger:      stubPinger{err: context.DeadlineExceeded},
		Favorites:     stubFavorites{},
		Market:        stubMarket{},
		Aggregator:    stubAggregator{},
	})

	rec := get(t, router, "/health", false)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unreachable", body.Database)
}

func TestRouter_IndexRedirectsAnonymousToLogin(t *testing.T) {
	router := testRouter()

	rec := get(t, router, "/", false)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRouter_NotificationRoutesAbsentWithoutPush(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/notifications/subscribe", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
