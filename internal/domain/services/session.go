package services

import (
	"context"

	"codeshare/internal/domain/models"
)

// SessionState is the lifecycle state of a document sync session.
type SessionState string

const (
	SessionOpening SessionState = "opening"
	SessionLive    SessionState = "live"
	SessionClosed  SessionState = "closed"
	SessionError   SessionState = "error"
)

// DocumentSession is one client's live view/edit binding to one open
// document. Updates carries full-content replacements in store commit
// order; Presence carries the co-editor set with the session's own user
// filtered out.
type DocumentSession interface {
	// State returns the current lifecycle state
	State() SessionState

	// Document returns the last delivered document state
	Document() *models.Document

	// Permission returns the permission evaluated at open time
	Permission() models.PermissionLevel

	// Updates streams committed document states. Closed when the session
	// closes.
	Updates() <-chan *models.Document

	// Presence streams the rendered presence set (self excluded). Closed
	// when the session closes.
	Presence() <-chan []models.PresenceEntry

	// Edit issues a full-content replace. Fails with PermissionDenied for
	// viewers and leaves no mutation behind. The write is not awaited by
	// the editing surface; a failed write surfaces here as a recoverable
	// error without reverting local content.
	Edit(ctx context.Context, content string) error

	// UpdateCursor publishes the caller's cursor position. Best-effort.
	UpdateCursor(ctx context.Context, pos models.CursorPosition)

	// Close unsubscribes, leaves presence and releases resources.
	// Idempotent.
	Close()
}

// SessionService opens document sync sessions.
type SessionService interface {
	// Open subscribes to the document and joins its presence set. Fails
	// with NotFound for missing or tombstoned documents, PermissionDenied
	// for users outside the ACL, and Timeout when the store never
	// delivers a first state.
	Open(ctx context.Context, user *models.UserIdentity, documentID string) (DocumentSession, error)
}
