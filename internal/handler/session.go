package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"codeshare/internal/domain/models"
	"codeshare/internal/domain/services"
	"codeshare/internal/httputil"
)

const (
	sessionWriteTimeout = 10 * time.Second
	sessionPingInterval = 20 * time.Second
	sessionPongTimeout  = 60 * time.Second
)

// clientFrame is a message from the editing client.
type clientFrame struct {
	Type    string `json:"type"` // "edit" or "cursor"
	Content string `json:"content,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// serverFrame is a message to the editing client. Exactly one payload field
// is set, selected by Type.
type serverFrame struct {
	Type         string                 `json:"type"` // "document", "presence" or "error"
	Document     *models.Document       `json:"document,omitempty"`
	Permission   models.PermissionLevel `json:"permission,omitempty"`
	Participants []models.PresenceEntry `json:"participants,omitempty"`
	Detail       string                 `json:"detail,omitempty"`
}

// SessionHandler upgrades document session requests to WebSocket and pumps
// session streams over the connection.
type SessionHandler struct {
	sessions services.SessionService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions services.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Cross-origin requests carry no ambient credentials here; the
			// bearer token in the upgrade request is the whole authority.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// OpenSession opens a live sync session on a document
// GET /api/documents/{id}/session (WebSocket upgrade)
//
// The session is opened before the upgrade so that open failures surface as
// plain HTTP statuses instead of a connect-then-close dance.
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document ID is required")
		return
	}

	sess, err := h.sessions.Open(r.Context(), user, id)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Debug("session upgrade failed", "document_id", id, "error", err)
		sess.Close()
		return
	}

	h.logger.Info("session opened",
		"document_id", id,
		"user_id", user.ID,
		"permission", sess.Permission(),
	)

	// The session holds the state delivered at open time; later commits
	// arrive through Updates. Send the opening state before the write loop
	// takes over the connection.
	conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
	if err := conn.WriteJSON(&serverFrame{
		Type:       "document",
		Document:   sess.Document(),
		Permission: sess.Permission(),
	}); err != nil {
		sess.Close()
		conn.Close()
		return
	}

	errFrames := make(chan string, 4)
	done := make(chan struct{})

	go h.writeLoop(conn, sess, errFrames, done)
	h.readLoop(r, conn, sess, errFrames)

	sess.Close()
	<-done
	conn.Close()

	h.logger.Info("session closed", "document_id", id, "user_id", user.ID)
}

// readLoop consumes client frames until the connection drops or the client
// sends a close frame.
func (h *SessionHandler) readLoop(r *http.Request, conn *websocket.Conn, sess services.DocumentSession, errFrames chan<- string) {
	conn.SetReadDeadline(time.Now().Add(sessionPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(sessionPongTimeout))
	})

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("session read failed", "error", err)
			}
			return
		}

		switch frame.Type {
		case "edit":
			if err := sess.Edit(r.Context(), frame.Content); err != nil {
				// Recoverable: the client keeps its local content and is
				// told why the write did not land.
				select {
				case errFrames <- err.Error():
				default:
				}
			}
		case "cursor":
			sess.UpdateCursor(r.Context(), models.CursorPosition{
				Line:   frame.Line,
				Column: frame.Column,
			})
		default:
			select {
			case errFrames <- "unknown frame type " + frame.Type:
			default:
			}
		}
	}
}

// writeLoop is the connection's only writer. It forwards document and
// presence updates, relays edit errors and keeps the connection alive with
// pings.
func (h *SessionHandler) writeLoop(conn *websocket.Conn, sess services.DocumentSession, errFrames <-chan string, done chan<- struct{}) {
	defer close(done)

	ping := time.NewTicker(sessionPingInterval)
	defer ping.Stop()

	write := func(frame *serverFrame) bool {
		conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Debug("session write failed", "error", err)
			return false
		}
		return true
	}

	updates := sess.Updates()
	presence := sess.Presence()

	for {
		select {
		case doc, open := <-updates:
			if !open {
				if sess.State() == services.SessionError {
					write(&serverFrame{Type: "error", Detail: "document deleted"})
				}
				conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if !write(&serverFrame{Type: "document", Document: doc, Permission: sess.Permission()}) {
				return
			}

		case participants, open := <-presence:
			if !open {
				// Presence ending alone does not end the session; document
				// updates drive the close.
				presence = nil
				continue
			}
			if !write(&serverFrame{Type: "presence", Participants: participants}) {
				return
			}

		case detail := <-errFrames:
			if !write(&serverFrame{Type: "error", Detail: detail}) {
				return
			}

		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
