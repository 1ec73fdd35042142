package models

import "time"

// Notification records one share grant for its recipient. Created exactly
// once per grant, mutated only to flip Read, never deleted.
//
// Recipient is a share key rather than a bare user id: a grant to an email
// that has not authenticated yet still produces a notification, which the
// recipient picks up by email match after first sign-in.
type Notification struct {
	ID         string          `json:"id" db:"id"`
	Recipient  ShareKey        `json:"recipient" db:"recipient"`
	FileID     string          `json:"file_id" db:"file_id"`
	FileName   string          `json:"file_name" db:"file_name"`
	SharedBy   string          `json:"shared_by" db:"shared_by"` // sharer's email
	Permission PermissionLevel `json:"permission" db:"permission"`
	Timestamp  time.Time       `json:"timestamp" db:"timestamp"`
	Read       bool            `json:"read" db:"read"`
}

// AddressedTo reports whether the notification belongs to the given user,
// matching the recipient key by resolved id or by email.
func (n *Notification) AddressedTo(user *UserIdentity) bool {
	switch n.Recipient.Kind {
	case ShareKeyUser:
		return n.Recipient.Value == user.ID
	case ShareKeyEmail:
		return user.Email != "" && n.Recipient == EmailKey(user.Email)
	default:
		return false
	}
}
