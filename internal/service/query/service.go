// Package query projects the live document collection into the derived
// views the listing screens render. Every view is a pure function of one
// collection snapshot, recomputed whenever the collection stream emits;
// shared-with-me in particular is computed here because the store cannot
// filter on ACL map-key membership.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"codeshare/internal/config"
	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/domain/services"
	"codeshare/internal/watch"
)

// queryService implements the QueryService interface
type queryService struct {
	docs   repositories.DocumentStore
	logger *slog.Logger
}

// NewQueryService creates a new query service
func NewQueryService(docs repositories.DocumentStore, logger *slog.Logger) services.QueryService {
	return &queryService{
		docs:   docs,
		logger: logger,
	}
}

// List evaluates the view once against current collection state.
func (s *queryService) List(ctx context.Context, user *models.UserIdentity, q *services.ListingQuery) ([]*models.Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	snapshot, err := s.docs.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return project(user, q, snapshot), nil
}

// Subscribe streams the view, re-projected on every collection commit.
func (s *queryService) Subscribe(ctx context.Context, user *models.UserIdentity, q *services.ListingQuery) (*watch.Subscription[[]*models.Document], error) {
	if err := validateQuery(q); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	sub, err := s.docs.SubscribeCollection(ctx)
	if err != nil {
		return nil, err
	}

	return watch.Derive(sub, func(snapshot []*models.Document) []*models.Document {
		return project(user, q, snapshot)
	}), nil
}

// project filters and orders one collection snapshot for one view. It
// never mutates the snapshot.
func project(user *models.UserIdentity, q *services.ListingQuery, snapshot []*models.Document) []*models.Document {
	out := make([]*models.Document, 0, len(snapshot))

	for _, doc := range snapshot {
		if match(user, q, doc) {
			out = append(out, doc)
		}
	}

	switch q.View {
	case services.ViewFolder:
		// Folder listings read like a file browser: folders first, then
		// names ascending.
		sort.Slice(out, func(i, j int) bool {
			if out[i].IsFolder() != out[j].IsFolder() {
				return out[i].IsFolder()
			}
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	default:
		sort.Slice(out, func(i, j int) bool {
			return out[i].LastModified.After(out[j].LastModified)
		})
	}

	return out
}

func match(user *models.UserIdentity, q *services.ListingQuery, doc *models.Document) bool {
	switch q.View {
	case services.ViewOwned:
		return doc.OwnerID == user.ID

	case services.ViewStarred:
		return doc.OwnerID == user.ID && doc.Starred

	case services.ViewShared:
		return doc.OwnerID != user.ID && doc.SharedWithUser(user)

	case services.ViewFolder:
		if doc.OwnerID != user.ID {
			return false
		}
		if q.FolderID == nil {
			return doc.ParentID == nil
		}
		return doc.ParentID != nil && *doc.ParentID == *q.FolderID

	case services.ViewSearch:
		if doc.OwnerID != user.ID {
			return false
		}
		needle := strings.ToLower(q.Query)
		if strings.Contains(strings.ToLower(doc.Name), needle) {
			return true
		}
		return doc.Kind == models.KindFile &&
			strings.Contains(strings.ToLower(doc.Content), needle)

	default:
		return false
	}
}

func validateQuery(q *services.ListingQuery) error {
	if err := validation.Validate(string(q.View),
		validation.Required,
		validation.In(
			string(services.ViewOwned),
			string(services.ViewStarred),
			string(services.ViewShared),
			string(services.ViewFolder),
			string(services.ViewSearch),
		),
	); err != nil {
		return fmt.Errorf("view: %v", err)
	}

	if q.View == services.ViewSearch {
		if err := validation.Validate(q.Query,
			validation.Required,
			validation.Length(1, config.MaxSearchQueryLength),
		); err != nil {
			return fmt.Errorf("query: %v", err)
		}
	}
	return nil
}
