// Package memory implements every repository interface in process memory.
// It backs the test suite and ENVIRONMENT=local runs, and doubles as the
// reference semantics for the Postgres implementation.
package memory

import (
	"context"
	"sync"

	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/watch"
)

const (
	collectionTopic    = "documents"
	notificationsTopic = "notifications"
)

// Store holds all entities behind one RWMutex and fans out committed writes
// through per-entity brokers. Repository views are obtained via Documents,
// Presence, Notifications and Identities.
type Store struct {
	mu sync.RWMutex

	docs          map[string]*models.Document
	presence      map[string]map[string]models.PresenceEntry // documentID -> userID
	notifications map[string]*models.Notification
	usersByID     map[string]*models.UserIdentity
	idsByEmail    map[string]string

	docBroker  *watch.Broker[*models.Document]
	collBroker *watch.Broker[[]*models.Document]
	presBroker *watch.Broker[[]models.PresenceEntry]
	noteBroker *watch.Broker[[]models.Notification]

	// txMu serializes ExecTx bodies so concurrent share/revoke cannot
	// interleave their read-modify-write of the same ACL.
	txMu sync.Mutex
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		docs:          make(map[string]*models.Document),
		presence:      make(map[string]map[string]models.PresenceEntry),
		notifications: make(map[string]*models.Notification),
		usersByID:     make(map[string]*models.UserIdentity),
		idsByEmail:    make(map[string]string),
		docBroker:     watch.NewBroker[*models.Document](),
		collBroker:    watch.NewBroker[[]*models.Document](),
		presBroker:    watch.NewBroker[[]models.PresenceEntry](),
		noteBroker:    watch.NewBroker[[]models.Notification](),
	}
}

// Documents returns the DocumentStore view.
func (s *Store) Documents() repositories.DocumentStore { return &documentRepo{s} }

// Presence returns the PresenceStore view.
func (s *Store) Presence() repositories.PresenceStore { return &presenceRepo{s} }

// Notifications returns the NotificationRepository view.
func (s *Store) Notifications() repositories.NotificationRepository { return &notificationRepo{s} }

// Identities returns the IdentityDirectory view.
func (s *Store) Identities() repositories.IdentityDirectory { return &identityRepo{s} }

// ExecTx implements repositories.TransactionManager. Individual operations
// are already atomic under the store mutex; ExecTx adds mutual exclusion
// between multi-step bodies. There is no rollback: callers order their
// writes so the externally visible one commits last.
func (s *Store) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

// snapshotLocked returns clones of all live documents. Caller holds s.mu.
func (s *Store) snapshotLocked() []*models.Document {
	out := make([]*models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if doc.DeletedAt == nil {
			out = append(out, doc.Clone())
		}
	}
	return out
}

// publishDocumentLocked fans out a committed document write. Caller holds
// s.mu.
func (s *Store) publishDocumentLocked(doc *models.Document) {
	s.docBroker.Publish(doc.ID, doc.Clone())
	s.collBroker.Publish(collectionTopic, s.snapshotLocked())
}
