package memory

import (
	"context"
	"fmt"
	"strings"

	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
)

type identityRepo struct {
	s *Store
}

// Upsert records an authenticated identity.
func (r *identityRepo) Upsert(ctx context.Context, user *models.UserIdentity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *user
	r.s.usersByID[user.ID] = &cp
	if user.Email != "" {
		r.s.idsByEmail[strings.ToLower(user.Email)] = user.ID
	}
	return nil
}

// ResolveUserIDByEmail returns the id of a known email, or ErrNotFound.
func (r *identityRepo) ResolveUserIDByEmail(ctx context.Context, email string) (string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.idsByEmail[strings.ToLower(email)]
	if !ok {
		return "", fmt.Errorf("user with email %s: %w", email, domain.ErrNotFound)
	}
	return id, nil
}
