// Package presence maintains the ephemeral "who is here" set for each open
// document. Entries are advisory: every write failure is non-fatal, and
// entries that stop heartbeating age out of the rendered set via TTL.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"codeshare/internal/config"
	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/watch"
)

// Tracker implements services.PresenceService over a PresenceStore.
type Tracker struct {
	store  repositories.PresenceStore
	ttl    time.Duration
	sweep  time.Duration
	limit  rate.Limit
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[limiterKey]*rate.Limiter
}

type limiterKey struct {
	documentID string
	userID     string
}

// NewTracker creates a presence tracker.
func NewTracker(store repositories.PresenceStore, cfg *config.Config, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:    store,
		ttl:      cfg.PresenceTTL,
		sweep:    cfg.PresenceSweep,
		limit:    rate.Limit(cfg.CursorRateLimit),
		logger:   logger,
		limiters: make(map[limiterKey]*rate.Limiter),
	}
}

// Join upserts the user's presence entry under the document, refreshing an
// existing entry rather than duplicating it.
func (t *Tracker) Join(ctx context.Context, documentID string, user *models.UserIdentity) error {
	entry := &models.PresenceEntry{
		UserID:   user.ID,
		Name:     user.DisplayName,
		Email:    user.Email,
		PhotoURL: user.PhotoURL,
	}
	if err := t.store.Upsert(ctx, documentID, entry); err != nil {
		t.logger.Warn("presence join failed",
			"document_id", documentID,
			"user_id", user.ID,
			"error", err,
		)
		return err
	}
	return nil
}

// UpdateCursor merges the cursor position and refreshes LastSeen. Cursor
// moves arrive at keystroke rate; calls beyond the per-participant limit
// are dropped, which only delays the next heartbeat by a fraction of the
// TTL.
func (t *Tracker) UpdateCursor(ctx context.Context, documentID, userID string, pos models.CursorPosition) error {
	if !t.limiter(documentID, userID).Allow() {
		return nil
	}

	entry := &models.PresenceEntry{
		UserID: userID,
		Cursor: &pos,
	}
	if err := t.store.Upsert(ctx, documentID, entry); err != nil {
		t.logger.Debug("cursor update dropped",
			"document_id", documentID,
			"user_id", userID,
			"error", err,
		)
		return err
	}
	return nil
}

// Subscribe streams the document's presence set with stale entries
// filtered out at delivery time.
func (t *Tracker) Subscribe(ctx context.Context, documentID string) (*watch.Subscription[[]models.PresenceEntry], error) {
	sub, err := t.store.Subscribe(ctx, documentID)
	if err != nil {
		return nil, err
	}

	ttl := t.ttl
	return watch.Derive(sub, func(entries []models.PresenceEntry) []models.PresenceEntry {
		now := time.Now()
		fresh := make([]models.PresenceEntry, 0, len(entries))
		for _, entry := range entries {
			if !entry.Stale(ttl, now) {
				fresh = append(fresh, entry)
			}
		}
		return fresh
	}), nil
}

// Leave removes the user's entry. Best-effort cleanup on session teardown;
// failures are swallowed because the TTL sweep catches whatever this
// misses.
func (t *Tracker) Leave(ctx context.Context, documentID, userID string) {
	t.mu.Lock()
	delete(t.limiters, limiterKey{documentID, userID})
	t.mu.Unlock()

	if err := t.store.Remove(ctx, documentID, userID); err != nil {
		t.logger.Debug("presence leave failed",
			"document_id", documentID,
			"user_id", userID,
			"error", err,
		)
	}
}

// RunSweeper periodically drops expired presence entries until ctx is
// cancelled. Run it in its own goroutine.
func (t *Tracker) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(t.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-t.ttl)
			if err := t.store.DeleteExpired(ctx, cutoff); err != nil {
				t.logger.Warn("presence sweep failed", "error", err)
			}
		}
	}
}

func (t *Tracker) limiter(documentID, userID string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := limiterKey{documentID, userID}
	lim, ok := t.limiters[key]
	if !ok {
		// Burst of 2 lets a click-then-type pair through before the
		// steady-state limit applies.
		lim = rate.NewLimiter(t.limit, 2)
		t.limiters[key] = lim
	}
	return lim
}
