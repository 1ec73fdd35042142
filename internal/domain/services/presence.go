package services

import (
	"context"

	"codeshare/internal/domain/models"
	"codeshare/internal/watch"
)

// PresenceService broadcasts "who is here" for open documents. All writes
// are advisory: callers swallow failures, and stale entries age out via TTL
// rather than explicit removal.
type PresenceService interface {
	// Join upserts the user's presence entry under the document
	Join(ctx context.Context, documentID string, user *models.UserIdentity) error

	// UpdateCursor merges the cursor position and refreshes LastSeen.
	// Calls beyond the per-participant rate limit are coalesced away.
	UpdateCursor(ctx context.Context, documentID, userID string, pos models.CursorPosition) error

	// Subscribe streams the document's presence set with stale entries
	// filtered out. The caller's own entry is included; self-exclusion is
	// a presentation filter applied by the session.
	Subscribe(ctx context.Context, documentID string) (*watch.Subscription[[]models.PresenceEntry], error)

	// Leave removes the user's entry. Best-effort; never fails the
	// caller.
	Leave(ctx context.Context, documentID, userID string)
}
