package services

import (
	"context"

	"codeshare/internal/domain/models"
	"codeshare/internal/watch"
)

// ListingView selects one of the derived live views over the document
// collection.
type ListingView string

const (
	// ViewOwned lists the user's documents, most recently modified first
	ViewOwned ListingView = "owned"

	// ViewStarred lists the user's starred documents
	ViewStarred ListingView = "starred"

	// ViewShared lists documents shared with the user by id or email
	ViewShared ListingView = "shared"

	// ViewFolder lists children of FolderID, or root documents when
	// FolderID is nil
	ViewFolder ListingView = "folder"

	// ViewSearch matches Query against names and file contents of the
	// user's owned documents
	ViewSearch ListingView = "search"
)

// ListingQuery parameterizes a view.
type ListingQuery struct {
	View     ListingView
	FolderID *string // ViewFolder only
	Query    string  // ViewSearch only
}

// QueryService projects the live document collection into filtered views.
// Views are pure projections: they recompute on every collection snapshot
// and never mutate the collection.
type QueryService interface {
	// List evaluates the view once against current state
	List(ctx context.Context, user *models.UserIdentity, q *ListingQuery) ([]*models.Document, error)

	// Subscribe streams the view, re-projected on every collection commit
	Subscribe(ctx context.Context, user *models.UserIdentity, q *ListingQuery) (*watch.Subscription[[]*models.Document], error)
}
