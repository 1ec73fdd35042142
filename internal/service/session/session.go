// Package session binds one client to one open document: it subscribes to
// content and presence changes, applies permission-checked edits, and keeps
// the client's presence entry fresh. Content conflicts resolve by
// last-committed-write-wins; there is no merge and no conflict surface.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"codeshare/internal/access"
	"codeshare/internal/config"
	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/domain/services"
	"codeshare/internal/watch"
)

// Service opens document sync sessions.
type Service struct {
	store       repositories.DocumentStore
	presence    services.PresenceService
	openTimeout time.Duration
	logger      *slog.Logger
}

// NewService creates a session service.
func NewService(
	store repositories.DocumentStore,
	presence services.PresenceService,
	cfg *config.Config,
	logger *slog.Logger,
) services.SessionService {
	return &Service{
		store:       store,
		presence:    presence,
		openTimeout: cfg.SessionOpenTimeout,
		logger:      logger,
	}
}

// Open subscribes to the document, evaluates the caller's permission from
// the first delivered state, and joins the presence set. A store that
// never delivers transitions the opening session to a timeout error
// instead of hanging in Opening forever.
func (s *Service) Open(ctx context.Context, user *models.UserIdentity, documentID string) (services.DocumentSession, error) {
	sub, err := s.store.SubscribeDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.openTimeout)
	defer timer.Stop()

	var doc *models.Document
	select {
	case first, ok := <-sub.Updates():
		if !ok {
			sub.Cancel()
			return nil, fmt.Errorf("document %s subscription closed: %w", documentID, domain.ErrStoreUnavailable)
		}
		doc = first
	case <-timer.C:
		sub.Cancel()
		return nil, fmt.Errorf("open document %s: %w", documentID, domain.ErrTimeout)
	case <-ctx.Done():
		sub.Cancel()
		return nil, ctx.Err()
	}

	perm, err := access.RequireRead(doc, user)
	if err != nil {
		sub.Cancel()
		return nil, err
	}

	// Presence is advisory; a failed join must not block the session.
	if err := s.presence.Join(ctx, documentID, user); err != nil {
		s.logger.Warn("session opened without presence entry",
			"document_id", documentID,
			"user_id", user.ID,
		)
	}

	presSub, err := s.presence.Subscribe(ctx, documentID)
	if err != nil {
		s.logger.Warn("presence subscription unavailable",
			"document_id", documentID,
			"error", err,
		)
		presSub = nil
	}

	sess := &Session{
		svc:        s,
		documentID: documentID,
		user:       user,
		perm:       perm,
		sub:        sub,
		presSub:    presSub,
		updates:    make(chan *models.Document, 1),
		presence:   make(chan []models.PresenceEntry, 1),
		state:      services.SessionLive,
		doc:        doc,
	}

	go sess.pumpDocuments()
	go sess.pumpPresence()

	s.logger.Debug("session opened",
		"document_id", documentID,
		"user_id", user.ID,
		"permission", perm,
	)

	return sess, nil
}

// Session is one live binding. All exported methods are safe for
// concurrent use.
type Session struct {
	svc        *Service
	documentID string
	user       *models.UserIdentity
	perm       models.PermissionLevel

	sub     *watch.Subscription[*models.Document]
	presSub *watch.Subscription[[]models.PresenceEntry]

	updates  chan *models.Document
	presence chan []models.PresenceEntry

	mu    sync.Mutex
	state services.SessionState
	doc   *models.Document

	shutdownOnce sync.Once
}

// State returns the current lifecycle state.
func (s *Session) State() services.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Document returns the last delivered document state.
func (s *Session) Document() *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Permission returns the permission evaluated at open time.
func (s *Session) Permission() models.PermissionLevel {
	return s.perm
}

// Updates streams committed document states in store commit order.
func (s *Session) Updates() <-chan *models.Document {
	return s.updates
}

// Presence streams the rendered presence set with the session's own user
// excluded.
func (s *Session) Presence() <-chan []models.PresenceEntry {
	return s.presence
}

// Edit issues a full-content replace. The session never blocks local
// display on the write: a failure comes back as a recoverable error and
// content is not reverted, the user may retry.
func (s *Session) Edit(ctx context.Context, content string) error {
	s.mu.Lock()
	state := s.state
	kind := s.doc.Kind
	s.mu.Unlock()

	if state != services.SessionLive {
		return fmt.Errorf("%w: cannot edit in state %s", domain.ErrValidation, state)
	}
	if kind != models.KindFile {
		return fmt.Errorf("%w: folder %s has no content to edit", domain.ErrValidation, s.documentID)
	}
	if !s.perm.CanEdit() {
		return &domain.PermissionDeniedError{
			Message: "edit requires owner or editor permission on document " + s.documentID,
		}
	}

	_, err := s.svc.store.Update(ctx, s.documentID, &repositories.DocumentPatch{
		Content: &content,
	})
	if err != nil {
		return fmt.Errorf("write content: %w", err)
	}
	return nil
}

// UpdateCursor publishes the caller's cursor position. Best-effort.
func (s *Session) UpdateCursor(ctx context.Context, pos models.CursorPosition) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != services.SessionLive {
		return
	}
	_ = s.svc.presence.UpdateCursor(ctx, s.documentID, s.user.ID, pos)
}

// Close unsubscribes, leaves the presence set and releases all resources.
// Idempotent; in-flight writes are not cancelled, their results simply
// stop mattering.
func (s *Session) Close() {
	s.shutdown(services.SessionClosed)
}

func (s *Session) shutdown(final services.SessionState) {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.state = final
		s.mu.Unlock()

		s.sub.Cancel()
		if s.presSub != nil {
			s.presSub.Cancel()
		}

		// Leave is detached from any request context: teardown runs even
		// when the triggering request is already gone.
		s.svc.presence.Leave(context.Background(), s.documentID, s.user.ID)

		s.svc.logger.Debug("session closed",
			"document_id", s.documentID,
			"user_id", s.user.ID,
			"state", final,
		)
	})
}

// pumpDocuments forwards store commits to the updates channel, applying
// each as a full-content replace. A tombstone ends the session in the
// error state. The pump owns closing the updates channel.
func (s *Session) pumpDocuments() {
	for doc := range s.sub.Updates() {
		s.mu.Lock()
		s.doc = doc
		s.mu.Unlock()

		latestWins(s.updates, doc)

		if doc.DeletedAt != nil {
			s.shutdown(services.SessionError)
		}
	}
	close(s.updates)
}

// pumpPresence filters the session's own user out of every snapshot.
// Self-exclusion is a presentation rule, not a storage rule.
func (s *Session) pumpPresence() {
	if s.presSub == nil {
		close(s.presence)
		return
	}
	for entries := range s.presSub.Updates() {
		rendered := make([]models.PresenceEntry, 0, len(entries))
		for _, entry := range entries {
			if entry.UserID != s.user.ID {
				rendered = append(rendered, entry)
			}
		}
		latestWins(s.presence, rendered)
	}
	close(s.presence)
}

// latestWins delivers v, replacing an unconsumed older value. Each channel
// has a single producing pump, so the drain/send pair cannot race.
func latestWins[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}
