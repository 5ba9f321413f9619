package handler_test

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/stockdeck/stockdeck/internal/api/middleware"
	"github.com/stockdeck/stockdeck/internal/auth"
	"github.com/stockdeck/stockdeck/internal/favorites"
)

const testToken = "valid-test-token"

// fixedAuthenticator resolves the test token to a fixed identity.
type fixedAuthenticator struct {
	identity *auth.Identity
}

func (a *fixedAuthenticator) Authenticate(_ context.Context, rawToken string) (*auth.Identity, error) {
	if rawToken == testToken {
		return a.identity, nil
	}
	return nil, auth.ErrUnauthenticated
}

// asUser wraps a handler with the auth middleware so the identity flows
// through the request context the same way it does in production.
func asUser(identity *auth.Identity, next http.HandlerFunc) http.Handler {
	return middleware.Auth(&fixedAuthenticator{identity: identity})(next)
}

func testIdentity() *auth.Identity {
	return &auth.Identity{
		UserID:      uuid.New(),
		Subject:     "sub-1",
		Email:       "casey@example.com",
		DisplayName: "Casey Lee",
	}
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

// memoryFavorites is an in-memory favorites.Repository.
type memoryFavorites struct {
	nextID int64
	items  map[uuid.UUID][]*favorites.Favorite
	err    error
}

func newMemoryFavorites() *memoryFavorites {
	return &memoryFavorites{items: make(map[uuid.UUID][]*favorites.Favorite)}
}

func (r *memoryFavorites) List(_ context.Context, userID uuid.UUID) ([]favorites.Favorite, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]favorites.Favorite, 0, len(r.items[userID]))
	for _, f := range r.items[userID] {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

func (r *memoryFavorites) Add(_ context.Context, f *favorites.Favorite) error {
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.items[f.UserID] {
		if existing.Ticker == f.Ticker {
			return favorites.ErrAlreadyExists
		}
	}
	r.nextID++
	stored := *f
	stored.ID = r.nextID
	if stored.AddedAt.IsZero() {
		stored.AddedAt = time.Now()
	}
	r.items[f.UserID] = append(r.items[f.UserID], &stored)
	return nil
}

func (r *memoryFavorites) Remove(_ context.Context, userID uuid.UUID, ticker string) error {
	if r.err != nil {
		return r.err
	}
	for i, existing := range r.items[userID] {
		if existing.Ticker == ticker {
			r.items[userID] = append(r.items[userID][:i], r.items[userID][i+1:]...)
			return nil
		}
	}
	return favorites.ErrNotFound
}
