package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stockdeck/stockdeck/internal/identity"
	"github.com/stockdeck/stockdeck/internal/user"
)

// ErrUnauthenticated is returned whenever a credential cannot be resolved to
// an active user, regardless of the underlying cause. The gate fails closed:
// verification errors never produce a partially trusted identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Service authenticates bearer credentials and resolves local users,
// auto-provisioning a user row on the first verified sight of a subject.
type Service struct {
	verifier identity.Verifier
	users    user.Repository
}

// NewService creates a new auth Service.
func NewService(verifier identity.Verifier, users user.Repository) *Service {
	return &Service{
		verifier: verifier,
		users:    users,
	}
}

// Authenticate verifies a raw ID token and returns the identity it belongs
// to. Verification failures and deactivated users both map to
// ErrUnauthenticated; storage failures are surfaced as-is so callers can
// report a server error instead of a credential one.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*Identity, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	u, err := s.users.GetBySubject(ctx, claims.Subject)
	if errors.Is(err, user.ErrUserNotFound) {
		u, err = s.provision(ctx, claims)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving user for subject: %w", err)
	}

	if !u.IsActive {
		return nil, ErrUnauthenticated
	}

	return &Identity{
		UserID:      u.ID,
		Subject:     u.Subject,
		Email:       u.Email,
		DisplayName: u.DisplayName,
	}, nil
}

func (s *Service) provision(ctx context.Context, claims *identity.Claims) (*user.User, error) {
	name := claims.Name
	if name == "" {
		name = displayNameFromEmail(claims.Email)
	}

	u, err := s.users.CreateOrGet(ctx, &user.User{
		Subject:     claims.Subject,
		Email:       claims.Email,
		DisplayName: name,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("auto-provisioned user", "subject", claims.Subject, "email", claims.Email)
	return u, nil
}

// displayNameFromEmail derives a fallback display name from the local part
// of an email address.
func displayNameFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return email
	}
	return local
}
