package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
)

func seedDocument(t *testing.T, store *Store, name string) *models.Document {
	t.Helper()
	doc := &models.Document{
		Name:       name,
		Kind:       models.KindFile,
		OwnerID:    "alice",
		SharedWith: make(map[models.ShareKey]models.ShareGrant),
	}
	if err := store.Documents().Create(context.Background(), doc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return doc
}

func TestCreateAssignsIdentityAndTimestamps(t *testing.T) {
	store := NewStore()
	doc := seedDocument(t, store, "a.py")

	if doc.ID == "" {
		t.Error("ID not assigned")
	}
	if doc.CreatedAt.IsZero() || doc.LastModified.IsZero() {
		t.Error("timestamps not assigned")
	}
}

func TestUpdateBumpsLastModified(t *testing.T) {
	store := NewStore()
	doc := seedDocument(t, store, "a.py")

	content := "print('hi')"
	updated, err := store.Documents().Update(context.Background(), doc.ID, &repositories.DocumentPatch{
		Content: &content,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Content != content {
		t.Errorf("Content = %q, want %q", updated.Content, content)
	}
	if updated.LastModified.Before(doc.LastModified) {
		t.Error("LastModified moved backwards")
	}
	// Untouched fields survive the merge-patch.
	if updated.Name != doc.Name {
		t.Errorf("Name = %q, want unchanged %q", updated.Name, doc.Name)
	}
}

func TestSoftDeleteHidesDocument(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	doc := seedDocument(t, store, "a.py")

	if err := store.Documents().SoftDelete(ctx, doc.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}

	if _, err := store.Documents().Get(ctx, doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want not found", err)
	}
	if err := store.Documents().SoftDelete(ctx, doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("SoftDelete(twice) error = %v, want not found", err)
	}
	if _, err := store.Documents().Update(ctx, doc.ID, &repositories.DocumentPatch{}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update(deleted) error = %v, want not found", err)
	}

	all, err := store.Documents().ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("ListAll() = %d documents, want 0", len(all))
	}
}

func TestSubscribeDocumentSeedsThenStreams(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	doc := seedDocument(t, store, "a.py")

	sub, err := store.Documents().SubscribeDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("SubscribeDocument() error = %v", err)
	}
	defer sub.Cancel()

	recv := func() *models.Document {
		select {
		case d := <-sub.Updates():
			return d
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for delivery")
			panic("unreachable")
		}
	}

	// Current state arrives without any commit happening.
	first := recv()
	if first.ID != doc.ID {
		t.Errorf("seeded ID = %q, want %q", first.ID, doc.ID)
	}

	content := "v2"
	if _, err := store.Documents().Update(ctx, doc.ID, &repositories.DocumentPatch{Content: &content}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := recv(); got.Content != "v2" {
		t.Errorf("streamed Content = %q, want %q", got.Content, "v2")
	}

	// The tombstone is delivered with DeletedAt set, unlike Get which
	// reports not found.
	if err := store.Documents().SoftDelete(ctx, doc.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}
	if got := recv(); got.DeletedAt == nil {
		t.Error("tombstone delivered without DeletedAt")
	}
}

func TestSubscribeDocumentMissing(t *testing.T) {
	store := NewStore()
	if _, err := store.Documents().SubscribeDocument(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("SubscribeDocument(missing) error = %v, want not found", err)
	}
}

func TestSubscriberMutationCannotCorruptStore(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	doc := seedDocument(t, store, "a.py")

	sub, err := store.Documents().SubscribeDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("SubscribeDocument() error = %v", err)
	}
	defer sub.Cancel()

	delivered := <-sub.Updates()
	delivered.Name = "mutated"
	delivered.SharedWith[models.UserKey("mallory")] = models.ShareGrant{Permission: models.PermissionEditor}

	current, err := store.Documents().Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if current.Name != "a.py" || len(current.SharedWith) != 0 {
		t.Errorf("store state changed through a delivered clone: %+v", current)
	}
}

func TestIdentityDirectoryResolvesCaseInsensitive(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	user := &models.UserIdentity{ID: "u1", Email: "Person@Example.com"}
	if err := store.Identities().Upsert(ctx, user); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	id, err := store.Identities().ResolveUserIDByEmail(ctx, "person@example.COM")
	if err != nil {
		t.Fatalf("ResolveUserIDByEmail() error = %v", err)
	}
	if id != "u1" {
		t.Errorf("resolved id = %q, want u1", id)
	}

	if _, err := store.Identities().ResolveUserIDByEmail(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ResolveUserIDByEmail(unknown) error = %v, want not found", err)
	}
}
