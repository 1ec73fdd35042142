package models

import "time"

// CursorPosition is a line/column pair inside a file's content.
type CursorPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// PresenceEntry is the ephemeral record of one user viewing one document.
// Entries are advisory: a lost heartbeat only makes a collaborator vanish
// from the rendered set, it never affects document state.
type PresenceEntry struct {
	UserID   string          `json:"user_id" db:"user_id"`
	Name     string          `json:"name" db:"name"`
	Email    string          `json:"email" db:"email"`
	PhotoURL string          `json:"photo_url,omitempty" db:"photo_url"`
	Cursor   *CursorPosition `json:"cursor,omitempty" db:"cursor"`
	LastSeen time.Time       `json:"last_seen" db:"last_seen"`
}

// Stale reports whether the entry has gone longer than ttl without a
// heartbeat as of now.
func (e *PresenceEntry) Stale(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.LastSeen) > ttl
}
