package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a row in the users table. Rows are auto-provisioned on
// the first verified credential from an unseen identity-provider subject
// and are never deleted by the application.
type User struct {
	ID              uuid.UUID
	Subject         string
	Email           string
	DisplayName     string
	AutoProvisioned bool
	IsActive        bool
	CreatedAt       time.Time
}
