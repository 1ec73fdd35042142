package services

import (
	"context"

	"codeshare/internal/domain/models"
	"codeshare/internal/watch"
)

// ShareRequest grants a recipient access to a document.
type ShareRequest struct {
	Email      string                 `json:"email"`
	Permission models.PermissionLevel `json:"permission"`
}

// UpdateShareRequest changes an existing grant's permission in place.
type UpdateShareRequest struct {
	Permission models.PermissionLevel `json:"permission"`
}

// SharingService mutates document ACLs and manages the notifications those
// mutations emit.
type SharingService interface {
	// Share grants req.Permission on the document to req.Email. The ACL
	// merge and the notification commit atomically.
	Share(ctx context.Context, user *models.UserIdentity, documentID string, req *ShareRequest) (*models.Document, error)

	// Revoke removes a grant. Already-delivered notifications stay.
	Revoke(ctx context.Context, user *models.UserIdentity, documentID string, key models.ShareKey) (*models.Document, error)

	// UpdatePermission replaces a grant's permission in place
	UpdatePermission(ctx context.Context, user *models.UserIdentity, documentID string, key models.ShareKey, req *UpdateShareRequest) (*models.Document, error)

	// MarkRead flips a notification's read flag. Idempotent; recipient
	// only.
	MarkRead(ctx context.Context, user *models.UserIdentity, notificationID string) error

	// ListNotifications returns the user's notifications, newest first
	ListNotifications(ctx context.Context, user *models.UserIdentity) ([]models.Notification, error)

	// SubscribeNotifications streams the user's notification set
	SubscribeNotifications(ctx context.Context, user *models.UserIdentity) (*watch.Subscription[[]models.Notification], error)
}
