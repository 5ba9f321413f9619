package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrUserInactive is returned when the matched user has been deactivated.
var ErrUserInactive = errors.New("user is deactivated")

// ErrUserActive is returned when activating a user that is already active.
var ErrUserActive = errors.New("user is already active")

// Repository provides operations on the users table.
type Repository interface {
	// CreateOrGet inserts a user for u.Subject if none exists and returns
	// the stored row either way. Concurrent calls for the same subject
	// must resolve to a single row.
	CreateOrGet(ctx context.Context, u *User) (*User, error)
	GetBySubject(ctx context.Context, subject string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) error
}
