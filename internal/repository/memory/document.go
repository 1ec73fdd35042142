package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/watch"
)

type documentRepo struct {
	s *Store
}

// Get retrieves a live document by ID.
func (r *documentRepo) Get(ctx context.Context, id string) (*models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	doc, ok := r.s.docs[id]
	if !ok || doc.DeletedAt != nil {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return doc.Clone(), nil
}

// Create stores a new document, assigning ID and timestamps.
func (r *documentRepo) Create(ctx context.Context, doc *models.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	doc.ID = uuid.NewString()
	doc.CreatedAt = now
	doc.LastModified = now
	if doc.SharedWith == nil {
		doc.SharedWith = make(map[models.ShareKey]models.ShareGrant)
	}

	r.s.docs[doc.ID] = doc.Clone()
	r.s.publishDocumentLocked(doc)
	return nil
}

// Update applies a merge-patch and bumps LastModified.
func (r *documentRepo) Update(ctx context.Context, id string, patch *repositories.DocumentPatch) (*models.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	doc, ok := r.s.docs[id]
	if !ok || doc.DeletedAt != nil {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	if patch.Name != nil {
		doc.Name = *patch.Name
	}
	if patch.Content != nil {
		doc.Content = *patch.Content
	}
	if patch.Starred != nil {
		doc.Starred = *patch.Starred
	}
	if patch.SharedWith != nil {
		shared := make(map[models.ShareKey]models.ShareGrant, len(*patch.SharedWith))
		for k, v := range *patch.SharedWith {
			shared[k] = v
		}
		doc.SharedWith = shared
	}
	doc.LastModified = time.Now()

	r.s.publishDocumentLocked(doc)
	return doc.Clone(), nil
}

// SoftDelete tombstones a document. Subscribers observe the tombstone as a
// final update with DeletedAt set.
func (r *documentRepo) SoftDelete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	doc, ok := r.s.docs[id]
	if !ok || doc.DeletedAt != nil {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	now := time.Now()
	doc.DeletedAt = &now
	doc.LastModified = now

	r.s.publishDocumentLocked(doc)
	return nil
}

// SubscribeDocument seeds the subscription with current state, then emits
// on every committed write.
func (r *documentRepo) SubscribeDocument(ctx context.Context, id string) (*watch.Subscription[*models.Document], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	doc, ok := r.s.docs[id]
	if !ok || doc.DeletedAt != nil {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	sub := r.s.docBroker.Subscribe(id)
	r.s.docBroker.Prime(sub, doc.Clone())
	return sub, nil
}

// SubscribeCollection seeds the subscription with the full live set, then
// emits on every commit affecting any document.
func (r *documentRepo) SubscribeCollection(ctx context.Context) (*watch.Subscription[[]*models.Document], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sub := r.s.collBroker.Subscribe(collectionTopic)
	r.s.collBroker.Prime(sub, r.s.snapshotLocked())
	return sub, nil
}

// ListAll returns the full live document set.
func (r *documentRepo) ListAll(ctx context.Context) ([]*models.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.snapshotLocked(), nil
}
