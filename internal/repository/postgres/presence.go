package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/watch"
)

// PostgresPresenceStore implements the PresenceStore interface
type PostgresPresenceStore struct {
	pool    *pgxpool.Pool
	tables  *TableNames
	brokers *Brokers
	logger  *slog.Logger
}

// NewPresenceStore creates a new presence store
func NewPresenceStore(config *RepositoryConfig) repositories.PresenceStore {
	return &PostgresPresenceStore{
		pool:    config.Pool,
		tables:  config.Tables,
		brokers: config.Brokers,
		logger:  config.Logger,
	}
}

// Upsert inserts or refreshes a presence entry. COALESCE keeps the stored
// cursor on a bare heartbeat and the stored profile fields on a cursor-only
// update, so neither write shape wipes the other.
func (r *PostgresPresenceStore) Upsert(ctx context.Context, documentID string, entry *models.PresenceEntry) error {
	lastSeen := entry.LastSeen
	if lastSeen.IsZero() {
		lastSeen = time.Now()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, user_id, name, email, photo_url, cursor, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (document_id, user_id) DO UPDATE SET
			name      = COALESCE(NULLIF(EXCLUDED.name, ''), %s.name),
			email     = COALESCE(NULLIF(EXCLUDED.email, ''), %s.email),
			photo_url = COALESCE(NULLIF(EXCLUDED.photo_url, ''), %s.photo_url),
			cursor    = COALESCE(EXCLUDED.cursor, %s.cursor),
			last_seen = EXCLUDED.last_seen
	`, r.tables.Presence, r.tables.Presence, r.tables.Presence, r.tables.Presence, r.tables.Presence)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		documentID,
		entry.UserID,
		entry.Name,
		entry.Email,
		entry.PhotoURL,
		entry.Cursor,
		lastSeen,
	)
	if err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}

	r.publishPresence(ctx, documentID)
	return nil
}

// Remove drops one user's entry. Missing entries are not an error.
func (r *PostgresPresenceStore) Remove(ctx context.Context, documentID, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE document_id = $1 AND user_id = $2
	`, r.tables.Presence)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, documentID, userID)
	if err != nil {
		return fmt.Errorf("remove presence: %w", err)
	}

	if tag.RowsAffected() > 0 {
		r.publishPresence(ctx, documentID)
	}
	return nil
}

// List returns all entries under a document, stale ones included.
func (r *PostgresPresenceStore) List(ctx context.Context, documentID string) ([]models.PresenceEntry, error) {
	query := fmt.Sprintf(`
		SELECT user_id, name, email, photo_url, cursor, last_seen
		FROM %s
		WHERE document_id = $1
	`, r.tables.Presence)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list presence: %w", err)
	}
	defer rows.Close()

	entries := []models.PresenceEntry{}
	for rows.Next() {
		var entry models.PresenceEntry
		err := rows.Scan(
			&entry.UserID,
			&entry.Name,
			&entry.Email,
			&entry.PhotoURL,
			&entry.Cursor,
			&entry.LastSeen,
		)
		if err != nil {
			return nil, fmt.Errorf("scan presence entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presence: %w", err)
	}

	return entries, nil
}

// Subscribe seeds the subscription with the current entry set, then emits
// on every presence write under the document.
func (r *PostgresPresenceStore) Subscribe(ctx context.Context, documentID string) (*watch.Subscription[[]models.PresenceEntry], error) {
	entries, err := r.List(ctx, documentID)
	if err != nil {
		return nil, err
	}

	sub := r.brokers.Presence.Subscribe(documentID)
	r.brokers.Presence.Prime(sub, entries)
	return sub, nil
}

// DeleteExpired drops entries whose last_seen is older than the cutoff and
// notifies subscribers of every document that lost an entry.
func (r *PostgresPresenceStore) DeleteExpired(ctx context.Context, cutoff time.Time) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE last_seen < $1
		RETURNING document_id
	`, r.tables.Presence)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, cutoff)
	if err != nil {
		return fmt.Errorf("delete expired presence: %w", err)
	}
	defer rows.Close()

	touched := map[string]struct{}{}
	for rows.Next() {
		var documentID string
		if err := rows.Scan(&documentID); err != nil {
			return fmt.Errorf("scan expired presence: %w", err)
		}
		touched[documentID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate expired presence: %w", err)
	}

	for documentID := range touched {
		r.publishPresence(ctx, documentID)
	}
	return nil
}

// publishPresence re-emits the document's entry set. Inside a transaction
// the fan-out is deferred until commit, matching the document store.
func (r *PostgresPresenceStore) publishPresence(ctx context.Context, documentID string) {
	if repositories.DeferToCommit(ctx, func(ctx context.Context) {
		r.fanOutPresence(ctx, documentID)
	}) {
		return
	}
	r.fanOutPresence(ctx, documentID)
}

func (r *PostgresPresenceStore) fanOutPresence(ctx context.Context, documentID string) {
	if r.brokers.Presence.Subscribers(documentID) == 0 {
		return
	}
	entries, err := r.List(ctx, documentID)
	if err != nil {
		r.logger.Warn("presence snapshot failed after write",
			"document_id", documentID,
			"error", err,
		)
		return
	}
	r.brokers.Presence.Publish(documentID, entries)
}
