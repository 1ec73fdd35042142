package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/watch"
)

// notificationsTopic carries the full notification set; per-user streams
// are derived from it so id-keyed and email-keyed recipients both match.
const notificationsTopic = "notifications"

// PostgresNotificationRepository implements the NotificationRepository interface
type PostgresNotificationRepository struct {
	pool    *pgxpool.Pool
	tables  *TableNames
	brokers *Brokers
	logger  *slog.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(config *RepositoryConfig) repositories.NotificationRepository {
	return &PostgresNotificationRepository{
		pool:    config.Pool,
		tables:  config.Tables,
		brokers: config.Brokers,
		logger:  config.Logger,
	}
}

const notificationColumns = `id, recipient, file_id, file_name, shared_by, permission, ts, read`

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var recipient string

	err := row.Scan(
		&n.ID,
		&recipient,
		&n.FileID,
		&n.FileName,
		&n.SharedBy,
		&n.Permission,
		&n.Timestamp,
		&n.Read,
	)
	if err != nil {
		return nil, err
	}

	key, err := models.ParseShareKey(recipient)
	if err != nil {
		return nil, fmt.Errorf("decode recipient: %w", err)
	}
	n.Recipient = key
	return &n, nil
}

// Create stores a new notification, letting the database assign ID and
// timestamp.
func (r *PostgresNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (recipient, file_id, file_name, shared_by, permission)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, ts
	`, r.tables.Notifications)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		n.Recipient.String(),
		n.FileID,
		n.FileName,
		n.SharedBy,
		n.Permission,
	).Scan(&n.ID, &n.Timestamp)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	r.publishNotifications(ctx)
	return nil
}

// Get retrieves a notification by ID.
func (r *PostgresNotificationRepository) Get(ctx context.Context, id string) (*models.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, notificationColumns, r.tables.Notifications)

	executor := GetExecutor(ctx, r.pool)
	n, err := scanNotification(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// SetRead flips read to true. Idempotent: re-marking a read notification
// changes nothing and publishes nothing.
func (r *PostgresNotificationRepository) SetRead(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET read = TRUE
		WHERE id = $1 AND read = FALSE
	`, r.tables.Notifications)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either already read (fine) or missing (not fine).
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return nil
	}

	r.publishNotifications(ctx)
	return nil
}

// ListForUser returns notifications addressed to the user by id or email
// key, newest first.
func (r *PostgresNotificationRepository) ListForUser(ctx context.Context, user *models.UserIdentity) ([]models.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE recipient = $1 OR recipient = $2
		ORDER BY ts DESC
	`, notificationColumns, r.tables.Notifications)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query,
		models.UserKey(user.ID).String(),
		models.EmailKey(user.Email).String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return notifications, nil
}

// Subscribe seeds the subscription with the user's current notification
// set, then re-emits on every notification commit affecting the user.
func (r *PostgresNotificationRepository) Subscribe(ctx context.Context, user *models.UserIdentity) (*watch.Subscription[[]models.Notification], error) {
	current, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}

	sub := r.brokers.Notifications.Subscribe(notificationsTopic)
	r.brokers.Notifications.Prime(sub, current)

	return watch.Derive(sub, func(all []models.Notification) []models.Notification {
		out := make([]models.Notification, 0, len(all))
		for _, n := range all {
			if n.AddressedTo(user) {
				out = append(out, n)
			}
		}
		return out
	}), nil
}

func (r *PostgresNotificationRepository) listAll(ctx context.Context) ([]models.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY ts DESC
	`, notificationColumns, r.tables.Notifications)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return notifications, nil
}

// publishNotifications re-emits the full set. Inside a transaction the
// fan-out is deferred until commit, matching the document store.
func (r *PostgresNotificationRepository) publishNotifications(ctx context.Context) {
	if repositories.DeferToCommit(ctx, r.fanOutNotifications) {
		return
	}
	r.fanOutNotifications(ctx)
}

func (r *PostgresNotificationRepository) fanOutNotifications(ctx context.Context) {
	if r.brokers.Notifications.Subscribers(notificationsTopic) == 0 {
		return
	}
	all, err := r.listAll(ctx)
	if err != nil {
		r.logger.Warn("notification snapshot failed after write", "error", err)
		return
	}
	r.brokers.Notifications.Publish(notificationsTopic, all)
}
