package favorites

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrAlreadyExists is returned when adding a ticker the user already tracks.
var ErrAlreadyExists = errors.New("ticker already in favorites")

// ErrNotFound is returned when removing a ticker the user does not track.
var ErrNotFound = errors.New("ticker not in favorites")

// Repository provides operations on a user's tracked-ticker set. Every
// operation is scoped by user ID; there is no cross-user access path.
type Repository interface {
	// List returns the user's favorites in insertion order.
	List(ctx context.Context, userID uuid.UUID) ([]Favorite, error)
	Add(ctx context.Context, f *Favorite) error
	Remove(ctx context.Context, userID uuid.UUID, ticker string) error
}
