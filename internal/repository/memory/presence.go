package memory

import (
	"context"
	"time"

	"codeshare/internal/domain/models"
	"codeshare/internal/watch"
)

type presenceRepo struct {
	s *Store
}

// Upsert inserts or refreshes a presence entry. An existing entry keeps its
// cursor when the incoming one carries none (a bare heartbeat), so a
// refresh never wipes a collaborator's cursor.
func (r *presenceRepo) Upsert(ctx context.Context, documentID string, entry *models.PresenceEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entries, ok := r.s.presence[documentID]
	if !ok {
		entries = make(map[string]models.PresenceEntry)
		r.s.presence[documentID] = entries
	}

	stored := *entry
	if stored.LastSeen.IsZero() {
		stored.LastSeen = time.Now()
	}
	if prev, ok := entries[entry.UserID]; ok {
		// Merge: a cursor-only heartbeat keeps the profile fields, a
		// profile refresh keeps the cursor.
		if stored.Cursor == nil {
			stored.Cursor = prev.Cursor
		}
		if stored.Name == "" {
			stored.Name = prev.Name
		}
		if stored.Email == "" {
			stored.Email = prev.Email
		}
		if stored.PhotoURL == "" {
			stored.PhotoURL = prev.PhotoURL
		}
	}
	entries[entry.UserID] = stored

	r.s.publishPresenceLocked(documentID)
	return nil
}

// Remove drops one user's entry. Missing entries are not an error.
func (r *presenceRepo) Remove(ctx context.Context, documentID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entries, ok := r.s.presence[documentID]
	if !ok {
		return nil
	}
	if _, ok := entries[userID]; !ok {
		return nil
	}
	delete(entries, userID)
	if len(entries) == 0 {
		delete(r.s.presence, documentID)
	}

	r.s.publishPresenceLocked(documentID)
	return nil
}

// List returns all entries under a document, stale ones included.
func (r *presenceRepo) List(ctx context.Context, documentID string) ([]models.PresenceEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.presenceSnapshotLocked(documentID), nil
}

// Subscribe seeds the subscription with the current entry set, then emits
// on every presence write under the document.
func (r *presenceRepo) Subscribe(ctx context.Context, documentID string) (*watch.Subscription[[]models.PresenceEntry], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sub := r.s.presBroker.Subscribe(documentID)
	r.s.presBroker.Prime(sub, r.s.presenceSnapshotLocked(documentID))
	return sub, nil
}

// DeleteExpired drops entries whose LastSeen is older than the cutoff.
func (r *presenceRepo) DeleteExpired(ctx context.Context, cutoff time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for documentID, entries := range r.s.presence {
		changed := false
		for userID, entry := range entries {
			if entry.LastSeen.Before(cutoff) {
				delete(entries, userID)
				changed = true
			}
		}
		if len(entries) == 0 {
			delete(r.s.presence, documentID)
		}
		if changed {
			r.s.publishPresenceLocked(documentID)
		}
	}
	return nil
}

func (s *Store) presenceSnapshotLocked(documentID string) []models.PresenceEntry {
	entries := s.presence[documentID]
	out := make([]models.PresenceEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Cursor != nil {
			cursor := *entry.Cursor
			entry.Cursor = &cursor
		}
		out = append(out, entry)
	}
	return out
}

func (s *Store) publishPresenceLocked(documentID string) {
	s.presBroker.Publish(documentID, s.presenceSnapshotLocked(documentID))
}
