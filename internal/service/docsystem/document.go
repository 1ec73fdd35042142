package docsystem

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"codeshare/internal/access"
	"codeshare/internal/config"
	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/domain/services"
	"codeshare/internal/language"
)

var nameNoSlashes = regexp.MustCompile(`^[^/]+$`)

// documentService implements the DocumentService interface
type documentService struct {
	store     repositories.DocumentStore
	languages *language.Registry
	logger    *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	store repositories.DocumentStore,
	languages *language.Registry,
	logger *slog.Logger,
) services.DocumentService {
	return &documentService{
		store:     store,
		languages: languages,
		logger:    logger,
	}
}

// Create creates a file or folder owned by the acting user. Files get
// their language inferred from the name extension; folders never carry
// content or language.
func (s *documentService) Create(ctx context.Context, user *models.UserIdentity, req *services.CreateDocumentRequest) (*models.Document, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	name := strings.TrimSpace(req.Name)

	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}
	if req.ParentID != nil {
		parent, err := s.store.Get(ctx, *req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("resolve parent folder: %w", err)
		}
		if !parent.IsFolder() {
			return nil, fmt.Errorf("%w: parent %s is not a folder", domain.ErrValidation, parent.ID)
		}
		if parent.OwnerID != user.ID {
			return nil, &domain.PermissionDeniedError{
				Message: "cannot create inside a folder owned by another user",
			}
		}
	}

	doc := &models.Document{
		Name:       name,
		Kind:       req.Kind,
		ParentID:   req.ParentID,
		OwnerID:    user.ID,
		SharedWith: make(map[models.ShareKey]models.ShareGrant),
	}
	if req.Kind == models.KindFile {
		doc.Content = req.Content
		doc.Language = s.languages.Detect(name)
	}

	if err := s.store.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"name", doc.Name,
		"kind", doc.Kind,
		"language", doc.Language,
		"owner_id", doc.OwnerID,
		"parent_id", req.ParentID,
	)

	return doc, nil
}

// Get retrieves a document together with the acting user's permission.
func (s *documentService) Get(ctx context.Context, user *models.UserIdentity, id string) (*models.Document, models.PermissionLevel, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, models.PermissionNone, err
	}

	perm, err := access.RequireRead(doc, user)
	if err != nil {
		return nil, models.PermissionNone, err
	}

	return doc, perm, nil
}

// Update renames or stars a document.
func (s *documentService) Update(ctx context.Context, user *models.UserIdentity, id string, req *services.UpdateDocumentRequest) (*models.Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := &repositories.DocumentPatch{}

	if req.Name != nil {
		if err := access.RequireEdit(doc, user); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(*req.Name)
		if err := validateName(name); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		patch.Name = &name
	}

	if req.Starred != nil {
		// Starred is an owner-local flag, not shared state
		if err := access.RequireOwner(doc, user); err != nil {
			return nil, err
		}
		patch.Starred = req.Starred
	}

	if patch.Empty() {
		return doc, nil
	}

	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("document updated",
		"id", updated.ID,
		"name", updated.Name,
		"starred", updated.Starred,
	)

	return updated, nil
}

// Delete tombstones a document. Owner only.
func (s *documentService) Delete(ctx context.Context, user *models.UserIdentity, id string) error {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := access.RequireOwner(doc, user); err != nil {
		return err
	}

	if err := s.store.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("document deleted",
		"id", id,
		"owner_id", user.ID,
	)

	return nil
}

// validateCreateRequest validates a document creation request
func (s *documentService) validateCreateRequest(req *services.CreateDocumentRequest) error {
	if req.Kind == models.KindFolder && req.Content != "" {
		return fmt.Errorf("folders cannot have content")
	}

	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxDocumentNameLength),
			validation.Match(nameNoSlashes).Error("name cannot contain slashes"),
		),
		validation.Field(&req.Kind,
			validation.Required,
			validation.In(models.KindFile, models.KindFolder),
		),
	)
}

func validateName(name string) error {
	return validation.Validate(name,
		validation.Required,
		validation.Length(1, config.MaxDocumentNameLength),
		validation.Match(nameNoSlashes).Error("name cannot contain slashes"),
	)
}
