package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
)

// PostgresIdentityDirectory implements the IdentityDirectory interface
type PostgresIdentityDirectory struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewIdentityDirectory creates a new identity directory
func NewIdentityDirectory(config *RepositoryConfig) repositories.IdentityDirectory {
	return &PostgresIdentityDirectory{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Upsert records an authenticated identity. Called on every verified
// request, so share-by-email grants resolve to ids as soon as the invited
// user signs in once.
func (r *PostgresIdentityDirectory) Upsert(ctx context.Context, user *models.UserIdentity) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, email, display_name, photo_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			email        = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			photo_url    = EXCLUDED.photo_url
	`, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query, user.ID, user.Email, user.DisplayName, user.PhotoURL)
	if err != nil {
		return fmt.Errorf("upsert identity: %w", err)
	}
	return nil
}

// ResolveUserIDByEmail returns the id of a known email, or ErrNotFound.
func (r *PostgresIdentityDirectory) ResolveUserIDByEmail(ctx context.Context, email string) (string, error) {
	query := fmt.Sprintf(`
		SELECT id
		FROM %s
		WHERE LOWER(email) = LOWER($1)
	`, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	var id string
	if err := executor.QueryRow(ctx, query, email).Scan(&id); err != nil {
		if IsPgNoRowsError(err) {
			return "", fmt.Errorf("identity for %s: %w", email, domain.ErrNotFound)
		}
		return "", fmt.Errorf("resolve identity: %w", err)
	}
	return id, nil
}
