// Package access maps a document's ACL and an acting user to a permission
// level. Every mutating operation in the system consults this package before
// touching the store.
package access

import (
	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
)

// Evaluate resolves the acting user's permission on a document.
//
// Owner wins outright, even if the ACL also lists the owner under a stale
// grant. Otherwise an id-keyed grant takes priority over an email-keyed one,
// since a user may have been granted access before their identity resolved
// to an id.
func Evaluate(doc *models.Document, user *models.UserIdentity) models.PermissionLevel {
	if doc == nil || user == nil {
		return models.PermissionNone
	}
	if doc.OwnerID == user.ID {
		return models.PermissionOwner
	}
	if grant, ok := doc.SharedWith[models.UserKey(user.ID)]; ok {
		return grant.Permission
	}
	if user.Email != "" {
		if grant, ok := doc.SharedWith[models.EmailKey(user.Email)]; ok {
			return grant.Permission
		}
	}
	return models.PermissionNone
}

// RequireRead returns the user's permission, or PermissionDenied when the
// user may not even subscribe to the document.
func RequireRead(doc *models.Document, user *models.UserIdentity) (models.PermissionLevel, error) {
	perm := Evaluate(doc, user)
	if !perm.CanRead() {
		return models.PermissionNone, &domain.PermissionDeniedError{
			Message: "no access to document " + doc.ID,
		}
	}
	return perm, nil
}

// RequireEdit fails unless the user holds Owner or Editor.
func RequireEdit(doc *models.Document, user *models.UserIdentity) error {
	if !Evaluate(doc, user).CanEdit() {
		return &domain.PermissionDeniedError{
			Message: "edit requires owner or editor permission on document " + doc.ID,
		}
	}
	return nil
}

// RequireOwner fails unless the user owns the document. Deletion, sharing,
// revocation and permission changes all require ownership.
func RequireOwner(doc *models.Document, user *models.UserIdentity) error {
	if Evaluate(doc, user) != models.PermissionOwner {
		return &domain.PermissionDeniedError{
			Message: "operation requires ownership of document " + doc.ID,
		}
	}
	return nil
}
