package services

import (
	"context"

	"codeshare/internal/domain/models"
)

// CreateDocumentRequest creates a file or folder. ParentID nil means root
// level. Content applies to files only; the language is inferred from the
// name extension server-side.
type CreateDocumentRequest struct {
	Name     string              `json:"name"`
	Kind     models.DocumentKind `json:"kind"`
	ParentID *string             `json:"parent_id"`
	Content  string              `json:"content"`
}

// UpdateDocumentRequest renames or stars a document. Content changes go
// through a sync session; reparenting is not supported.
type UpdateDocumentRequest struct {
	Name    *string `json:"name,omitempty"`
	Starred *bool   `json:"starred,omitempty"`
}

// DocumentService defines file/folder lifecycle operations. Every mutation
// is permission-checked against the acting user.
type DocumentService interface {
	// Create creates a document owned by user
	Create(ctx context.Context, user *models.UserIdentity, req *CreateDocumentRequest) (*models.Document, error)

	// Get returns the document plus the acting user's permission on it
	Get(ctx context.Context, user *models.UserIdentity, id string) (*models.Document, models.PermissionLevel, error)

	// Update renames or stars a document (owner or editor for rename,
	// owner for star since starred is an owner-local flag)
	Update(ctx context.Context, user *models.UserIdentity, id string, req *UpdateDocumentRequest) (*models.Document, error)

	// Delete tombstones a document; requires ownership
	Delete(ctx context.Context, user *models.UserIdentity, id string) error
}
