package models

import "github.com/golang-jwt/jwt/v5"

// UserIdentity is the resolved identity of an authenticated caller.
type UserIdentity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// AccessClaims are the JWT claims the auth provider issues for access tokens.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Photo string `json:"picture,omitempty"`
	Role  string `json:"role"`
}

// Identity converts verified claims into the caller's UserIdentity.
func (c *AccessClaims) Identity() *UserIdentity {
	return &UserIdentity{
		ID:          c.Subject,
		Email:       c.Email,
		DisplayName: c.Name,
		PhotoURL:    c.Photo,
	}
}
