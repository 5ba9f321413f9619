package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Import sqlite driver
	_ "modernc.org/sqlite"

	"github.com/stockdeck/stockdeck/internal/identity"
)

// SQLiteStore implements Store on a local sqlite file. The credential table
// holds at most one row.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the credential store at the given path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging token store: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS credential (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			id_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at DATETIME NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating token store: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save persists the credential, replacing any prior one.
func (s *SQLiteStore) Save(ctx context.Context, cred *identity.Credential) error {
	if cred == nil || cred.IDToken == "" {
		return errors.New("refusing to save empty credential")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credential (id, id_token, refresh_token, expires_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			id_token = excluded.id_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at`,
		cred.IDToken, cred.RefreshToken, cred.ExpiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}

	return nil
}

// Load returns the stored credential, or nil when absent or unreadable.
func (s *SQLiteStore) Load(ctx context.Context) *identity.Credential {
	var cred identity.Credential
	var expiresAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id_token, refresh_token, expires_at FROM credential WHERE id = 1`,
	).Scan(&cred.IDToken, &cred.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		slog.Warn("token store unreadable, treating credential as absent", "error", err)
		return nil
	}

	cred.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		slog.Warn("token store held malformed expiry, treating credential as absent", "error", err)
		return nil
	}

	return &cred
}

// Clear removes the credential.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credential`); err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	return nil
}
