package access

import (
	"errors"
	"testing"

	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
)

func TestEvaluate(t *testing.T) {
	owner := &models.UserIdentity{ID: "owner-1", Email: "owner@example.com"}
	editor := &models.UserIdentity{ID: "editor-1", Email: "editor@example.com"}
	invited := &models.UserIdentity{ID: "invited-1", Email: "invited@example.com"}
	stranger := &models.UserIdentity{ID: "stranger-1", Email: "stranger@example.com"}

	doc := &models.Document{
		ID:      "doc-1",
		OwnerID: owner.ID,
		SharedWith: map[models.ShareKey]models.ShareGrant{
			models.UserKey(editor.ID):      {Email: editor.Email, Permission: models.PermissionEditor},
			models.EmailKey(invited.Email): {Email: invited.Email, Permission: models.PermissionViewer},
			// Stale self-grant: owner must still win outright.
			models.EmailKey(owner.Email): {Email: owner.Email, Permission: models.PermissionViewer},
			// Conflicting grant: the id-keyed one must take priority.
			models.EmailKey(editor.Email): {Email: editor.Email, Permission: models.PermissionViewer},
		},
	}

	tests := []struct {
		name string
		user *models.UserIdentity
		want models.PermissionLevel
	}{
		{"owner wins over stale email grant", owner, models.PermissionOwner},
		{"id-keyed grant beats email-keyed grant", editor, models.PermissionEditor},
		{"email grant applies before identity resolves", invited, models.PermissionViewer},
		{"no grant means none", stranger, models.PermissionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(doc, tt.user); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateNilInputs(t *testing.T) {
	user := &models.UserIdentity{ID: "u1"}
	if got := Evaluate(nil, user); got != models.PermissionNone {
		t.Errorf("Evaluate(nil doc) = %v, want none", got)
	}
	if got := Evaluate(&models.Document{OwnerID: "u1"}, nil); got != models.PermissionNone {
		t.Errorf("Evaluate(nil user) = %v, want none", got)
	}
}

func TestEvaluateEmailCaseInsensitive(t *testing.T) {
	user := &models.UserIdentity{ID: "u1", Email: "Mixed.Case@Example.COM"}
	doc := &models.Document{
		ID:      "doc-1",
		OwnerID: "someone-else",
		SharedWith: map[models.ShareKey]models.ShareGrant{
			models.EmailKey("mixed.case@example.com"): {Permission: models.PermissionEditor},
		},
	}

	if got := Evaluate(doc, user); got != models.PermissionEditor {
		t.Errorf("Evaluate() = %v, want editor despite casing", got)
	}
}

func TestRequireRead(t *testing.T) {
	owner := &models.UserIdentity{ID: "owner-1"}
	stranger := &models.UserIdentity{ID: "stranger-1"}
	doc := &models.Document{ID: "doc-1", OwnerID: owner.ID}

	perm, err := RequireRead(doc, owner)
	if err != nil {
		t.Fatalf("RequireRead(owner) error = %v", err)
	}
	if perm != models.PermissionOwner {
		t.Errorf("RequireRead(owner) = %v, want owner", perm)
	}

	_, err = RequireRead(doc, stranger)
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("RequireRead(stranger) error = %v, want permission denied", err)
	}
}

func TestRequireEdit(t *testing.T) {
	doc := &models.Document{
		ID:      "doc-1",
		OwnerID: "owner-1",
		SharedWith: map[models.ShareKey]models.ShareGrant{
			models.UserKey("editor-1"): {Permission: models.PermissionEditor},
			models.UserKey("viewer-1"): {Permission: models.PermissionViewer},
		},
	}

	tests := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{"owner can edit", "owner-1", false},
		{"editor can edit", "editor-1", false},
		{"viewer cannot edit", "viewer-1", true},
		{"stranger cannot edit", "stranger-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireEdit(doc, &models.UserIdentity{ID: tt.userID})
			if (err != nil) != tt.wantErr {
				t.Errorf("RequireEdit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrPermissionDenied) {
				t.Errorf("RequireEdit() error = %v, want permission denied", err)
			}
		})
	}
}

func TestRequireOwner(t *testing.T) {
	doc := &models.Document{
		ID:      "doc-1",
		OwnerID: "owner-1",
		SharedWith: map[models.ShareKey]models.ShareGrant{
			models.UserKey("editor-1"): {Permission: models.PermissionEditor},
		},
	}

	if err := RequireOwner(doc, &models.UserIdentity{ID: "owner-1"}); err != nil {
		t.Errorf("RequireOwner(owner) error = %v", err)
	}
	if err := RequireOwner(doc, &models.UserIdentity{ID: "editor-1"}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("RequireOwner(editor) error = %v, want permission denied", err)
	}
}
