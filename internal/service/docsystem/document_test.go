package docsystem

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/domain/services"
	"codeshare/internal/language"
	"codeshare/internal/repository/memory"
)

var (
	alice = &models.UserIdentity{ID: "alice", Email: "alice@example.com", DisplayName: "Alice"}
	bob   = &models.UserIdentity{ID: "bob", Email: "bob@example.com", DisplayName: "Bob"}
)

func newTestService(t *testing.T) services.DocumentService {
	t.Helper()

	registry, err := language.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDocumentService(memory.NewStore().Documents(), registry, logger)
}

func TestCreateFileDetectsLanguage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, alice, &services.CreateDocumentRequest{
		Name:    "app.py",
		Kind:    models.KindFile,
		Content: "# Start coding here\n",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if doc.ID == "" {
		t.Error("Create() did not assign an ID")
	}
	if doc.Language != "python" {
		t.Errorf("Language = %q, want %q", doc.Language, "python")
	}
	if doc.Content != "# Start coding here\n" {
		t.Errorf("Content = %q, want original content", doc.Content)
	}
	if doc.OwnerID != alice.ID {
		t.Errorf("OwnerID = %q, want %q", doc.OwnerID, alice.ID)
	}
	if doc.ParentID != nil {
		t.Errorf("ParentID = %v, want nil for root-level create", *doc.ParentID)
	}
}

func TestCreateFolderHasNoLanguage(t *testing.T) {
	svc := newTestService(t)

	doc, err := svc.Create(context.Background(), alice, &services.CreateDocumentRequest{
		Name: "src",
		Kind: models.KindFolder,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if doc.Language != "" {
		t.Errorf("folder Language = %q, want empty", doc.Language)
	}
	if !doc.IsFolder() {
		t.Error("IsFolder() = false, want true")
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	longName := make([]byte, 300)
	for i := range longName {
		longName[i] = 'a'
	}

	tests := []struct {
		name string
		req  *services.CreateDocumentRequest
	}{
		{"empty name", &services.CreateDocumentRequest{Name: "", Kind: models.KindFile}},
		{"name with slash", &services.CreateDocumentRequest{Name: "a/b.py", Kind: models.KindFile}},
		{"name too long", &services.CreateDocumentRequest{Name: string(longName), Kind: models.KindFile}},
		{"missing kind", &services.CreateDocumentRequest{Name: "a.py"}},
		{"unknown kind", &services.CreateDocumentRequest{Name: "a.py", Kind: "symlink"}},
		{"folder with content", &services.CreateDocumentRequest{Name: "src", Kind: models.KindFolder, Content: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, alice, tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Create() error = %v, want validation error", err)
			}
		})
	}
}

func TestCreateInsideParent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	folder, err := svc.Create(ctx, alice, &services.CreateDocumentRequest{
		Name: "src",
		Kind: models.KindFolder,
	})
	if err != nil {
		t.Fatalf("Create(folder) error = %v", err)
	}

	file, err := svc.Create(ctx, alice, &services.CreateDocumentRequest{
		Name:     "app.py",
		Kind:     models.KindFile,
		ParentID: &folder.ID,
	})
	if err != nil {
		t.Fatalf("Create(file) error = %v", err)
	}
	if file.ParentID == nil || *file.ParentID != folder.ID {
		t.Errorf("ParentID = %v, want %q", file.ParentID, folder.ID)
	}

	// A file cannot act as parent.
	_, err = svc.Create(ctx, alice, &services.CreateDocumentRequest{
		Name:     "other.py",
		Kind:     models.KindFile,
		ParentID: &file.ID,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Create(inside file) error = %v, want validation error", err)
	}

	// Another user cannot create inside alice's folder.
	_, err = svc.Create(ctx, bob, &services.CreateDocumentRequest{
		Name:     "intruder.py",
		Kind:     models.KindFile,
		ParentID: &folder.ID,
	})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("Create(foreign folder) error = %v, want permission denied", err)
	}

	// A missing parent is not found.
	missing := "no-such-folder"
	_, err = svc.Create(ctx, alice, &services.CreateDocumentRequest{
		Name:     "orphan.py",
		Kind:     models.KindFile,
		ParentID: &missing,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Create(missing parent) error = %v, want not found", err)
	}
}

func TestGetChecksPermission(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, alice, &services.CreateDocumentRequest{
		Name: "secret.py",
		Kind: models.KindFile,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, perm, err := svc.Get(ctx, alice, doc.ID)
	if err != nil {
		t.Fatalf("Get(owner) error = %v", err)
	}
	if perm != models.PermissionOwner {
		t.Errorf("permission = %v, want owner", perm)
	}
	if got.ID != doc.ID {
		t.Errorf("Get() ID = %q, want %q", got.ID, doc.ID)
	}

	if _, _, err := svc.Get(ctx, bob, doc.ID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("Get(stranger) error = %v, want permission denied", err)
	}

	if _, _, err := svc.Get(ctx, alice, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want not found", err)
	}
}

func TestUpdateRenameAndStar(t *testing.T) {
	store := memory.NewStore()
	registry, err := language.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewDocumentService(store.Documents(), registry, logger)
	ctx := context.Background()

	doc, err := svc.Create(ctx, alice, &services.CreateDocumentRequest{
		Name: "draft.md",
		Kind: models.KindFile,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Grant bob editor so rename is allowed but starring is not.
	shared := map[models.ShareKey]models.ShareGrant{
		models.UserKey(bob.ID): {Email: bob.Email, Permission: models.PermissionEditor},
	}
	if _, err := store.Documents().Update(ctx, doc.ID, &repositories.DocumentPatch{SharedWith: &shared}); err != nil {
		t.Fatalf("seed grant error = %v", err)
	}

	newName := "final.md"
	updated, err := svc.Update(ctx, bob, doc.ID, &services.UpdateDocumentRequest{Name: &newName})
	if err != nil {
		t.Fatalf("Update(rename by editor) error = %v", err)
	}
	if updated.Name != newName {
		t.Errorf("Name = %q, want %q", updated.Name, newName)
	}

	starred := true
	if _, err := svc.Update(ctx, bob, doc.ID, &services.UpdateDocumentRequest{Starred: &starred}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("Update(star by editor) error = %v, want permission denied", err)
	}

	updated, err = svc.Update(ctx, alice, doc.ID, &services.UpdateDocumentRequest{Starred: &starred})
	if err != nil {
		t.Fatalf("Update(star by owner) error = %v", err)
	}
	if !updated.Starred {
		t.Error("Starred = false, want true")
	}

	bad := "has/slash"
	if _, err := svc.Update(ctx, alice, doc.ID, &services.UpdateDocumentRequest{Name: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Update(bad name) error = %v, want validation error", err)
	}
}

func TestDeleteRequiresOwnership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, alice, &services.CreateDocumentRequest{
		Name: "doomed.py",
		Kind: models.KindFile,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, bob, doc.ID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("Delete(stranger) error = %v, want permission denied", err)
	}

	if err := svc.Delete(ctx, alice, doc.ID); err != nil {
		t.Fatalf("Delete(owner) error = %v", err)
	}

	// Soft-deleted documents are invisible to reads.
	if _, _, err := svc.Get(ctx, alice, doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want not found", err)
	}
}
