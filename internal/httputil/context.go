package httputil

import (
	"context"
	"net/http"

	"codeshare/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const userKey contextKey = "user"

// WithUser adds the authenticated identity to the request context
func WithUser(r *http.Request, user *models.UserIdentity) *http.Request {
	ctx := context.WithValue(r.Context(), userKey, user)
	return r.WithContext(ctx)
}

// GetUser retrieves the authenticated identity from context, or nil if the
// request never passed the auth middleware.
func GetUser(r *http.Request) *models.UserIdentity {
	user, _ := r.Context().Value(userKey).(*models.UserIdentity)
	return user
}
