package config

import "time"

const (
	// MaxDocumentNameLength is the maximum length for file and folder names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxDocumentNameLength = 255

	// MaxSearchQueryLength bounds free-text search input.
	MaxSearchQueryLength = 500

	// MaxShareEmailLength bounds recipient emails on share requests.
	MaxShareEmailLength = 320
)

const (
	// DefaultPresenceTTL is how long a presence entry stays visible without
	// a heartbeat. The source system never removed entries on tab close, so
	// the TTL is what keeps ghost collaborators out of the rendered set.
	DefaultPresenceTTL = 30 * time.Second

	// DefaultPresenceSweep is the interval between sweeps that physically
	// drop expired presence entries.
	DefaultPresenceSweep = 15 * time.Second

	// DefaultSessionOpenTimeout bounds how long a session may sit in
	// Opening before failing with a timeout.
	DefaultSessionOpenTimeout = 10 * time.Second

	// DefaultCursorRateLimit caps cursor-position writes per second per
	// participant. Cursor moves arrive at keystroke rate; the limiter keeps
	// heartbeat traffic store-independent.
	DefaultCursorRateLimit = 4.0
)
