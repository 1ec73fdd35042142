// Package sharing mutates document ACLs and emits the notifications those
// mutations produce. The ACL merge and its notification commit in one
// transaction so a reader never observes one without the other.
package sharing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"codeshare/internal/access"
	"codeshare/internal/config"
	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/domain/services"
	"codeshare/internal/watch"
)

// sharingService implements the SharingService interface
type sharingService struct {
	docs      repositories.DocumentStore
	notes     repositories.NotificationRepository
	directory repositories.IdentityDirectory
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewSharingService creates a new sharing service
func NewSharingService(
	docs repositories.DocumentStore,
	notes repositories.NotificationRepository,
	directory repositories.IdentityDirectory,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.SharingService {
	return &sharingService{
		docs:      docs,
		notes:     notes,
		directory: directory,
		txManager: txManager,
		logger:    logger,
	}
}

// Share grants the recipient access and emits exactly one notification.
func (s *sharingService) Share(ctx context.Context, user *models.UserIdentity, documentID string, req *services.ShareRequest) (*models.Document, error) {
	if err := validateShareRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if strings.EqualFold(email, user.Email) {
		return nil, domain.ErrCannotShareWithSelf
	}

	// Resolve the recipient to a known user id when one exists; otherwise
	// the raw email carries the grant until that address authenticates.
	key := models.EmailKey(email)
	if id, err := s.directory.ResolveUserIDByEmail(ctx, email); err == nil {
		if id == user.ID {
			return nil, domain.ErrCannotShareWithSelf
		}
		key = models.UserKey(id)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}

	var updated *models.Document
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		doc, err := s.docs.Get(txCtx, documentID)
		if err != nil {
			return err
		}
		if err := access.RequireOwner(doc, user); err != nil {
			return err
		}

		// A recipient may not hold two grants: a resolved id whose email
		// grant predates their first sign-in counts as already shared.
		if _, exists := doc.SharedWith[key]; exists {
			return &domain.AlreadySharedError{Key: key.String()}
		}
		if _, exists := doc.SharedWith[models.EmailKey(email)]; exists {
			return &domain.AlreadySharedError{Key: models.EmailKey(email).String()}
		}

		shared := make(map[models.ShareKey]models.ShareGrant, len(doc.SharedWith)+1)
		for k, v := range doc.SharedWith {
			shared[k] = v
		}
		shared[key] = models.ShareGrant{Email: email, Permission: req.Permission}

		updated, err = s.docs.Update(txCtx, documentID, &repositories.DocumentPatch{
			SharedWith: &shared,
		})
		if err != nil {
			return err
		}

		return s.notes.Create(txCtx, &models.Notification{
			Recipient:  key,
			FileID:     doc.ID,
			FileName:   doc.Name,
			SharedBy:   user.Email,
			Permission: req.Permission,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document shared",
		"document_id", documentID,
		"granter_id", user.ID,
		"recipient", key.String(),
		"permission", req.Permission,
	)

	return updated, nil
}

// Revoke removes a grant. Notifications already delivered for the grant
// are not retracted.
func (s *sharingService) Revoke(ctx context.Context, user *models.UserIdentity, documentID string, key models.ShareKey) (*models.Document, error) {
	var updated *models.Document
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		doc, err := s.docs.Get(txCtx, documentID)
		if err != nil {
			return err
		}
		if err := access.RequireOwner(doc, user); err != nil {
			return err
		}

		if _, exists := doc.SharedWith[key]; !exists {
			return fmt.Errorf("grant %s on document %s: %w", key, documentID, domain.ErrNotFound)
		}

		shared := make(map[models.ShareKey]models.ShareGrant, len(doc.SharedWith)-1)
		for k, v := range doc.SharedWith {
			if k != key {
				shared[k] = v
			}
		}

		updated, err = s.docs.Update(txCtx, documentID, &repositories.DocumentPatch{
			SharedWith: &shared,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("share revoked",
		"document_id", documentID,
		"granter_id", user.ID,
		"recipient", key.String(),
	)

	return updated, nil
}

// UpdatePermission replaces a grant's permission in place.
func (s *sharingService) UpdatePermission(ctx context.Context, user *models.UserIdentity, documentID string, key models.ShareKey, req *services.UpdateShareRequest) (*models.Document, error) {
	if !req.Permission.ValidGrant() {
		return nil, fmt.Errorf("%w: permission must be editor or viewer", domain.ErrValidation)
	}

	var updated *models.Document
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		doc, err := s.docs.Get(txCtx, documentID)
		if err != nil {
			return err
		}
		if err := access.RequireOwner(doc, user); err != nil {
			return err
		}

		grant, exists := doc.SharedWith[key]
		if !exists {
			return fmt.Errorf("grant %s on document %s: %w", key, documentID, domain.ErrNotFound)
		}
		grant.Permission = req.Permission

		shared := make(map[models.ShareKey]models.ShareGrant, len(doc.SharedWith))
		for k, v := range doc.SharedWith {
			shared[k] = v
		}
		shared[key] = grant

		updated, err = s.docs.Update(txCtx, documentID, &repositories.DocumentPatch{
			SharedWith: &shared,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("share permission updated",
		"document_id", documentID,
		"recipient", key.String(),
		"permission", req.Permission,
	)

	return updated, nil
}

// MarkRead flips a notification's read flag. Idempotent; only the
// recipient may flip it.
func (s *sharingService) MarkRead(ctx context.Context, user *models.UserIdentity, notificationID string) error {
	n, err := s.notes.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if !n.AddressedTo(user) {
		return &domain.PermissionDeniedError{
			Message: "notification " + notificationID + " belongs to another user",
		}
	}
	return s.notes.SetRead(ctx, notificationID)
}

// ListNotifications returns the user's notifications, newest first.
func (s *sharingService) ListNotifications(ctx context.Context, user *models.UserIdentity) ([]models.Notification, error) {
	return s.notes.ListForUser(ctx, user)
}

// SubscribeNotifications streams the user's notification set.
func (s *sharingService) SubscribeNotifications(ctx context.Context, user *models.UserIdentity) (*watch.Subscription[[]models.Notification], error) {
	return s.notes.Subscribe(ctx, user)
}

func validateShareRequest(req *services.ShareRequest) error {
	if !req.Permission.ValidGrant() {
		return fmt.Errorf("permission must be editor or viewer")
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.Email,
			validation.Required,
			validation.Length(3, config.MaxShareEmailLength),
			is.EmailFormat,
		),
	)
}
