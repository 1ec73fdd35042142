package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
	"codeshare/internal/watch"
)

type notificationRepo struct {
	s *Store
}

// Create stores a new notification, assigning ID and Timestamp.
func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n.ID = uuid.NewString()
	n.Timestamp = time.Now()
	stored := *n
	r.s.notifications[n.ID] = &stored

	r.s.publishNotificationsLocked()
	return nil
}

// Get retrieves a notification by ID.
func (r *notificationRepo) Get(ctx context.Context, id string) (*models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.notifications[id]
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	cp := *n
	return &cp, nil
}

// SetRead flips Read to true. Idempotent: a second call is a no-op.
func (r *notificationRepo) SetRead(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok {
		return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	if n.Read {
		return nil
	}
	n.Read = true

	r.s.publishNotificationsLocked()
	return nil
}

// ListForUser returns notifications addressed to the user, newest first.
func (r *notificationRepo) ListForUser(ctx context.Context, user *models.UserIdentity) ([]models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return filterNotifications(r.s.allNotificationsLocked(), user), nil
}

// Subscribe seeds the subscription with the user's current notification
// set, then re-emits on every notification commit affecting the user.
func (r *notificationRepo) Subscribe(ctx context.Context, user *models.UserIdentity) (*watch.Subscription[[]models.Notification], error) {
	r.s.mu.RLock()
	sub := r.s.noteBroker.Subscribe(notificationsTopic)
	r.s.noteBroker.Prime(sub, r.s.allNotificationsLocked())
	r.s.mu.RUnlock()

	return watch.Derive(sub, func(all []models.Notification) []models.Notification {
		return filterNotifications(all, user)
	}), nil
}

func (s *Store) allNotificationsLocked() []models.Notification {
	out := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (s *Store) publishNotificationsLocked() {
	s.noteBroker.Publish(notificationsTopic, s.allNotificationsLocked())
}

func filterNotifications(all []models.Notification, user *models.UserIdentity) []models.Notification {
	out := make([]models.Notification, 0, len(all))
	for _, n := range all {
		if n.AddressedTo(user) {
			out = append(out, n)
		}
	}
	return out
}
