package favorites

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
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

// List returns the user's favorites ordered by when they were added.
func (r *PostgresRepository) List(ctx context.Context, userID uuid.UUID) ([]Favorite, error) {
	query := `
		SELECT id, user_id, ticker, company_name, added_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY added_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer rows.Close()

	var favs []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.Ticker, &f.CompanyName, &f.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning favorite row: %w", err)
		}
		favs = append(favs, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating favorite rows: %w", err)
	}

	if favs == nil {
		favs = []Favorite{}
	}

	return favs, nil
}

// Add inserts a favorite. The unique constraint on (user_id, ticker) makes
// the insert atomic with respect to duplicates: a losing concurrent insert
// reports ErrAlreadyExists instead of creating a second row.
func (r *PostgresRepository) Add(ctx context.Context, f *Favorite) error {
	query := `
		INSERT INTO favorites (user_id, ticker, company_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, ticker) DO NOTHING
		RETURNING id, added_at`

	ticker := strings.ToUpper(strings.TrimSpace(f.Ticker))
	f.Ticker = ticker

	rows, err := r.pool.Query(ctx, query, f.UserID, ticker, f.CompanyName)
	if err != nil {
		return fmt.Errorf("inserting favorite: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("inserting favorite: %w", err)
		}
		return ErrAlreadyExists
	}

	if err := rows.Scan(&f.ID, &f.AddedAt); err != nil {
		return fmt.Errorf("scanning inserted favorite: %w", err)
	}

	return nil
}

// Remove deletes a favorite. Returns ErrNotFound when the user does not
// track the ticker.
func (r *PostgresRepository) Remove(ctx context.Context, userID uuid.UUID, ticker string) error {
	query := `
		DELETE FROM favorites
		WHERE user_id = $1 AND ticker = $2`

	result, err := r.pool.Exec(ctx, query, userID, strings.ToUpper(strings.TrimSpace(ticker)))
	if err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
