package models

import (
	"fmt"
	"strings"
	"time"
)

// DocumentKind discriminates files from folders.
type DocumentKind string

const (
	KindFile   DocumentKind = "file"
	KindFolder DocumentKind = "folder"
)

// PermissionLevel is the resolved access level of a user on a document.
type PermissionLevel string

const (
	PermissionOwner  PermissionLevel = "owner"
	PermissionEditor PermissionLevel = "editor"
	PermissionViewer PermissionLevel = "viewer"
	PermissionNone   PermissionLevel = "none"
)

// CanEdit reports whether the level permits content mutation.
func (p PermissionLevel) CanEdit() bool {
	return p == PermissionOwner || p == PermissionEditor
}

// CanRead reports whether the level permits read-only subscription.
func (p PermissionLevel) CanRead() bool {
	return p != PermissionNone && p != ""
}

// ValidGrant reports whether the level is grantable through sharing.
// Ownership is never granted; it is fixed at creation.
func (p PermissionLevel) ValidGrant() bool {
	return p == PermissionEditor || p == PermissionViewer
}

// ShareGrant is one entry in a document's ACL.
type ShareGrant struct {
	Email      string          `json:"email"`
	Permission PermissionLevel `json:"permission"`
}

// Document is a file or folder. Folders never carry Content or Language.
type Document struct {
	ID           string                   `json:"id" db:"id"`
	Name         string                   `json:"name" db:"name"`
	Kind         DocumentKind             `json:"kind" db:"kind"`
	Language     string                   `json:"language,omitempty" db:"language"`
	Content      string                   `json:"content,omitempty" db:"content"`
	ParentID     *string                  `json:"parent_id" db:"parent_id"` // NULL = root level
	OwnerID      string                   `json:"owner_id" db:"owner_id"`
	Starred      bool                     `json:"starred" db:"starred"`
	SharedWith   map[ShareKey]ShareGrant  `json:"shared_with" db:"shared_with"`
	LastModified time.Time                `json:"last_modified" db:"last_modified"`
	CreatedAt    time.Time                `json:"created_at" db:"created_at"`
	DeletedAt    *time.Time               `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsFolder reports whether the document is a folder.
func (d *Document) IsFolder() bool {
	return d.Kind == KindFolder
}

// SharedWithUser reports whether the ACL contains a grant matching the given
// user by resolved id or by email.
func (d *Document) SharedWithUser(user *UserIdentity) bool {
	if _, ok := d.SharedWith[UserKey(user.ID)]; ok {
		return true
	}
	if user.Email != "" {
		if _, ok := d.SharedWith[EmailKey(user.Email)]; ok {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Subscribers receive clones so that no two
// goroutines ever share a SharedWith map.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	if d.ParentID != nil {
		parent := *d.ParentID
		cp.ParentID = &parent
	}
	if d.DeletedAt != nil {
		deleted := *d.DeletedAt
		cp.DeletedAt = &deleted
	}
	if d.SharedWith != nil {
		cp.SharedWith = make(map[ShareKey]ShareGrant, len(d.SharedWith))
		for k, v := range d.SharedWith {
			cp.SharedWith[k] = v
		}
	}
	return &cp
}

// ShareKeyKind tags how a grant is indexed: by resolved user id, or by the
// raw email of a recipient who has not authenticated yet.
type ShareKeyKind string

const (
	ShareKeyUser  ShareKeyKind = "user"
	ShareKeyEmail ShareKeyKind = "email"
)

// ShareKey is the identifier a grant is indexed under in SharedWith.
// The canonical text form is "user:<id>" or "email:<address>".
type ShareKey struct {
	Kind  ShareKeyKind
	Value string
}

// UserKey builds a share key for a resolved user id.
func UserKey(id string) ShareKey {
	return ShareKey{Kind: ShareKeyUser, Value: id}
}

// EmailKey builds a share key for an unresolved recipient email.
// Emails are lowercased so that grant and login casing never diverge.
func EmailKey(email string) ShareKey {
	return ShareKey{Kind: ShareKeyEmail, Value: strings.ToLower(email)}
}

// ParseShareKey parses the canonical "kind:value" text form.
func ParseShareKey(s string) (ShareKey, error) {
	kind, value, ok := strings.Cut(s, ":")
	if !ok || value == "" {
		return ShareKey{}, fmt.Errorf("malformed share key %q", s)
	}
	switch ShareKeyKind(kind) {
	case ShareKeyUser:
		return ShareKey{Kind: ShareKeyUser, Value: value}, nil
	case ShareKeyEmail:
		return EmailKey(value), nil
	default:
		return ShareKey{}, fmt.Errorf("unknown share key kind %q", kind)
	}
}

// String returns the canonical text form.
func (k ShareKey) String() string {
	return string(k.Kind) + ":" + k.Value
}

// IsZero reports whether the key is unset.
func (k ShareKey) IsZero() bool {
	return k.Kind == "" && k.Value == ""
}

// MarshalText lets ShareKey serve as a JSON map key.
func (k ShareKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the canonical text form.
func (k *ShareKey) UnmarshalText(text []byte) error {
	parsed, err := ParseShareKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
