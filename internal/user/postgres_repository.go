package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// CreateOrGet provisions a user row for u.Subject. The insert relies on the
// unique constraint on subject: a concurrent insert for the same subject
// loses the race silently and the follow-up select returns the winner's row.
func (r *PostgresRepository) CreateOrGet(ctx context.Context, u *User) (*User, error) {
	insert := `
		INSERT INTO users (subject, email, display_name, auto_provisioned)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (subject) DO NOTHING`

	if _, err := r.pool.Exec(ctx, insert, u.Subject, u.Email, u.DisplayName); err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	stored, err := r.GetBySubject(ctx, u.Subject)
	if err != nil {
		return nil, fmt.Errorf("fetching provisioned user: %w", err)
	}

	return stored, nil
}

// GetBySubject retrieves a user by its identity-provider subject ID.
func (r *PostgresRepository) GetBySubject(ctx context.Context, subject string) (*User, error) {
	query := `
		SELECT id, subject, email, display_name, auto_provisioned, is_active, created_at
		FROM users
		WHERE subject = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, subject))
}

// GetByID retrieves a single user by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, subject, email, display_name, auto_provisioned, is_active, created_at
		FROM users
		WHERE id = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// List retrieves all users ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	query := `
		SELECT id, subject, email, display_name, auto_provisioned, is_active, created_at
		FROM users
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		err := rows.Scan(
			&u.ID, &u.Subject, &u.Email, &u.DisplayName,
			&u.AutoProvisioned, &u.IsActive, &u.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	if users == nil {
		users = []User{}
	}

	return users, nil
}

// Deactivate clears the active flag on a user. Returns ErrUserNotFound if
// the user does not exist, and ErrUserInactive if already deactivated.
func (r *PostgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET is_active = FALSE
		WHERE id = $1 AND is_active`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivating user: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking user existence: %w", err)
		}
		if !exists {
			return ErrUserNotFound
		}
		return ErrUserInactive
	}

	return nil
}

// Activate restores the active flag on a user. Returns ErrUserNotFound if
// the user does not exist, and ErrUserActive if already active.
func (r *PostgresRepository) Activate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET is_active = TRUE
		WHERE id = $1 AND NOT is_active`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("activating user: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking user existence: %w", err)
		}
		if !exists {
			return ErrUserNotFound
		}
		return ErrUserActive
	}

	return nil
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Subject, &u.Email, &u.DisplayName,
		&u.AutoProvisioned, &u.IsActive, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return &u, nil
}
