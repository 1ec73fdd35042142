package repositories

import (
	"context"
	"time"

	"codeshare/internal/domain/models"
	"codeshare/internal/watch"
)

// DocumentPatch carries merge-patch fields for Update. Nil fields are left
// untouched. SharedWith replaces the whole map: the store has no map-key
// transaction primitive, so ACL changes are read-modify-write over the full
// map inside a transaction.
type DocumentPatch struct {
	Name       *string
	Content    *string
	Starred    *bool
	SharedWith *map[models.ShareKey]models.ShareGrant
}

// Empty reports whether the patch changes nothing.
func (p *DocumentPatch) Empty() bool {
	return p.Name == nil && p.Content == nil && p.Starred == nil &&
		p.SharedWith == nil
}

// DocumentStore defines data access and live-subscription operations for
// documents. Soft-deleted documents are invisible to every method except
// the delete itself.
type DocumentStore interface {
	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*models.Document, error)

	// Create stores a new document, assigning ID, CreatedAt and
	// LastModified
	Create(ctx context.Context, doc *models.Document) error

	// Update applies a merge-patch and bumps LastModified. Returns the
	// committed state.
	Update(ctx context.Context, id string, patch *DocumentPatch) (*models.Document, error)

	// SoftDelete tombstones a document
	SoftDelete(ctx context.Context, id string) error

	// SubscribeDocument emits the current state immediately, then on every
	// committed write. A tombstoned document emits with DeletedAt set.
	SubscribeDocument(ctx context.Context, id string) (*watch.Subscription[*models.Document], error)

	// SubscribeCollection emits the full live document set immediately,
	// then on every commit affecting any document.
	SubscribeCollection(ctx context.Context) (*watch.Subscription[[]*models.Document], error)

	// ListAll returns the full live document set
	ListAll(ctx context.Context) ([]*models.Document, error)
}

// PresenceStore holds the ephemeral per-document presence subcollection.
// All writes are advisory; callers treat failures as non-fatal.
type PresenceStore interface {
	// Upsert inserts or refreshes the entry for entry.UserID
	Upsert(ctx context.Context, documentID string, entry *models.PresenceEntry) error

	// Remove drops one user's entry; missing entries are not an error
	Remove(ctx context.Context, documentID, userID string) error

	// List returns all entries under a document, stale ones included
	List(ctx context.Context, documentID string) ([]models.PresenceEntry, error)

	// Subscribe emits the current entry set immediately, then on every
	// presence write under the document.
	Subscribe(ctx context.Context, documentID string) (*watch.Subscription[[]models.PresenceEntry], error)

	// DeleteExpired drops entries whose LastSeen is older than the cutoff
	DeleteExpired(ctx context.Context, cutoff time.Time) error
}

// NotificationRepository stores share notifications.
type NotificationRepository interface {
	// Create stores a new notification, assigning ID and Timestamp
	Create(ctx context.Context, n *models.Notification) error

	// Get retrieves a notification by ID
	Get(ctx context.Context, id string) (*models.Notification, error)

	// SetRead flips Read to true. Idempotent.
	SetRead(ctx context.Context, id string) error

	// ListForUser returns notifications addressed to the user by id or
	// email key, newest first.
	ListForUser(ctx context.Context, user *models.UserIdentity) ([]models.Notification, error)

	// Subscribe emits the user's notification set immediately, then on
	// every notification commit affecting the user.
	Subscribe(ctx context.Context, user *models.UserIdentity) (*watch.Subscription[[]models.Notification], error)
}

// IdentityDirectory resolves and records user identities.
type IdentityDirectory interface {
	// Upsert records an authenticated identity (called on every verified
	// request so share-by-email grants resolve to ids over time)
	Upsert(ctx context.Context, user *models.UserIdentity) error

	// ResolveUserIDByEmail returns the id of a known email, or ErrNotFound
	ResolveUserIDByEmail(ctx context.Context, email string) (string, error)
}
