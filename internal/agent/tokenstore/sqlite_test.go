package tokenstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdeck/stockdeck/internal/agent/tokenstore"
	"github.com/stockdeck/stockdeck/internal/identity"
)

func openStore(t *testing.T) *tokenstore.SQLiteStore {
	t.Helper()

	store, err := tokenstore.Open(filepath.Join(t.TempDir(), "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testCredential(idToken string) *identity.Credential {
	return &identity.Credential{
		IDToken:      idToken,
		RefreshToken: "refresh-" + idToken,
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	cred := testCredential("token-1")
	require.NoError(t, store.Save(ctx, cred))

	loaded := store.Load(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, cred.IDToken, loaded.IDToken)
	assert.Equal(t, cred.RefreshToken, loaded.RefreshToken)
	assert.True(t, cred.ExpiresAt.Equal(loaded.ExpiresAt))
}

func TestLoad_AbsentCredential(t *testing.T) {
	store := openStore(t)

	assert.Nil(t, store.Load(context.Background()))
}

func TestSave_ReplacesPriorCredential(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testCredential("token-1")))
	require.NoError(t, store.Save(ctx, testCredential("token-2")))

	loaded := store.Load(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, "token-2", loaded.IDToken)
}

func TestSave_RejectsEmptyCredential(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, nil))
	assert.Error(t, store.Save(ctx, &identity.Credential{}))
}

func TestClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testCredential("token-1")))
	require.NoError(t, store.Clear(ctx))
	assert.Nil(t, store.Load(ctx))

	// Clearing an already-empty store is not an error.
	assert.NoError(t, store.Clear(ctx))
}

func TestOpen_ReopensExistingStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.db")
	ctx := context.Background()

	store, err := tokenstore.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, testCredential("token-1")))
	require.NoError(t, store.Close())

	reopened, err := tokenstore.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded := reopened.Load(ctx)
	require.NotNil(t, loaded)
	assert.Equal(t, "token-1", loaded.IDToken)
}
