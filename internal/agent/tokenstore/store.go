// Package tokenstore persists the agent's bearer credential so it survives
// restarts of the agent process.
package tokenstore

import (
	"context"

	"github.com/stockdeck/stockdeck/internal/identity"
)

// Store holds the current credential. Writes are last-write-wins; readers
// must re-load rather than cache, since another process may have replaced
// the value in between.
type Store interface {
	// Save persists the credential, overwriting any prior value.
	Save(ctx context.Context, cred *identity.Credential) error
	// Load returns the most recently saved credential, or nil when none
	// was saved, it was cleared, or the underlying storage failed. A
	// missing credential pushes the caller toward re-authentication, so
	// storage errors are deliberately absorbed into "absent".
	Load(ctx context.Context) *identity.Credential
	// Clear removes the credential.
	Clear(ctx context.Context) error
}
