package favorites

import (
	"time"

	"github.com/google/uuid"
)

// Favorite represents a row in the favorites table. A (user, ticker) pair
// appears at most once, enforced by a unique constraint.
type Favorite struct {
	ID          int64
	UserID      uuid.UUID
	Ticker      string
	CompanyName string
	AddedAt     time.Time
}
