package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeshare/internal/domain"
	"codeshare/internal/domain/models"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/watch"
)

// collectionTopic is the broker topic carrying full-collection snapshots.
const collectionTopic = "documents"

// PostgresDocumentStore implements the DocumentStore interface
type PostgresDocumentStore struct {
	pool    *pgxpool.Pool
	tables  *TableNames
	brokers *Brokers
	logger  *slog.Logger
}

// NewDocumentStore creates a new document store
func NewDocumentStore(config *RepositoryConfig) repositories.DocumentStore {
	return &PostgresDocumentStore{
		pool:    config.Pool,
		tables:  config.Tables,
		brokers: config.Brokers,
		logger:  config.Logger,
	}
}

const documentColumns = `id, name, kind, language, content, parent_id, owner_id, starred, shared_with, last_modified, created_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var sharedWith []byte

	err := row.Scan(
		&doc.ID,
		&doc.Name,
		&doc.Kind,
		&doc.Language,
		&doc.Content,
		&doc.ParentID,
		&doc.OwnerID,
		&doc.Starred,
		&sharedWith,
		&doc.LastModified,
		&doc.CreatedAt,
		&doc.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.SharedWith = make(map[models.ShareKey]models.ShareGrant)
	if len(sharedWith) > 0 {
		if err := json.Unmarshal(sharedWith, &doc.SharedWith); err != nil {
			return nil, fmt.Errorf("decode shared_with: %w", err)
		}
	}
	return &doc, nil
}

// Get retrieves a live document by ID.
func (r *PostgresDocumentStore) Get(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Create stores a new document, letting the database assign ID and
// timestamps.
func (r *PostgresDocumentStore) Create(ctx context.Context, doc *models.Document) error {
	if doc.SharedWith == nil {
		doc.SharedWith = make(map[models.ShareKey]models.ShareGrant)
	}
	sharedWith, err := json.Marshal(doc.SharedWith)
	if err != nil {
		return fmt.Errorf("encode shared_with: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (name, kind, language, content, parent_id, owner_id, starred, shared_with)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, last_modified, created_at
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		doc.Name,
		doc.Kind,
		doc.Language,
		doc.Content,
		doc.ParentID,
		doc.OwnerID,
		doc.Starred,
		sharedWith,
	).Scan(&doc.ID, &doc.LastModified, &doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	r.publishDocument(ctx, doc)
	return nil
}

// Update applies a merge-patch and bumps last_modified.
func (r *PostgresDocumentStore) Update(ctx context.Context, id string, patch *repositories.DocumentPatch) (*models.Document, error) {
	sets := []string{}
	args := []interface{}{}
	arg := 1

	if patch.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", arg))
		args = append(args, *patch.Name)
		arg++
	}
	if patch.Content != nil {
		sets = append(sets, fmt.Sprintf("content = $%d", arg))
		args = append(args, *patch.Content)
		arg++
	}
	if patch.Starred != nil {
		sets = append(sets, fmt.Sprintf("starred = $%d", arg))
		args = append(args, *patch.Starred)
		arg++
	}
	if patch.SharedWith != nil {
		sharedWith, err := json.Marshal(*patch.SharedWith)
		if err != nil {
			return nil, fmt.Errorf("encode shared_with: %w", err)
		}
		sets = append(sets, fmt.Sprintf("shared_with = $%d", arg))
		args = append(args, sharedWith)
		arg++
	}
	sets = append(sets, "last_modified = NOW()")

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE id = $%d AND deleted_at IS NULL
		RETURNING %s
	`, r.tables.Documents, strings.Join(sets, ", "), arg, documentColumns)
	args = append(args, id)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("update document: %w", err)
	}

	r.publishDocument(ctx, doc)
	return doc, nil
}

// SoftDelete tombstones a document by setting deleted_at.
func (r *PostgresDocumentStore) SoftDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW(), last_modified = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING %s
	`, r.tables.Documents, documentColumns)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("delete document: %w", err)
	}

	r.publishDocument(ctx, doc)
	return nil
}

// SubscribeDocument seeds the subscription with current state, then emits
// on every committed write.
func (r *PostgresDocumentStore) SubscribeDocument(ctx context.Context, id string) (*watch.Subscription[*models.Document], error) {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	sub := r.brokers.Documents.Subscribe(id)
	r.brokers.Documents.Prime(sub, doc)
	return sub, nil
}

// SubscribeCollection seeds the subscription with the full live set, then
// emits on every commit affecting any document.
func (r *PostgresDocumentStore) SubscribeCollection(ctx context.Context) (*watch.Subscription[[]*models.Document], error) {
	snapshot, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	sub := r.brokers.Collection.Subscribe(collectionTopic)
	r.brokers.Collection.Prime(sub, snapshot)
	return sub, nil
}

// ListAll returns the full live document set.
func (r *PostgresDocumentStore) ListAll(ctx context.Context) ([]*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE deleted_at IS NULL
		ORDER BY last_modified DESC
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	documents := []*models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return documents, nil
}

// publishDocument fans out a write to document and collection subscribers.
// Inside a transaction the fan-out is deferred until commit so subscribers
// never see state a rollback can take back. Fan-out is in-process: a
// multi-instance deployment would need LISTEN/NOTIFY plumbed through here.
func (r *PostgresDocumentStore) publishDocument(ctx context.Context, doc *models.Document) {
	committed := doc.Clone()
	if repositories.DeferToCommit(ctx, func(ctx context.Context) {
		r.fanOutDocument(ctx, committed)
	}) {
		return
	}
	r.fanOutDocument(ctx, committed)
}

func (r *PostgresDocumentStore) fanOutDocument(ctx context.Context, doc *models.Document) {
	r.brokers.Documents.Publish(doc.ID, doc)

	if r.brokers.Collection.Subscribers(collectionTopic) == 0 {
		return
	}
	snapshot, err := r.ListAll(ctx)
	if err != nil {
		r.logger.Warn("collection snapshot failed after write",
			"document_id", doc.ID,
			"error", err,
		)
		return
	}
	r.brokers.Collection.Publish(collectionTopic, snapshot)
}
