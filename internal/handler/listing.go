package handler

import (
	"log/slog"
	"net/http"

	"codeshare/internal/domain/services"
	"codeshare/internal/handler/sse"
	"codeshare/internal/httputil"
)

// ListingHandler serves derived views over the document collection
type ListingHandler struct {
	queries   services.QueryService
	sseConfig *sse.Config
	logger    *slog.Logger
}

// NewListingHandler creates a new listing handler
func NewListingHandler(queries services.QueryService, sseConfig *sse.Config, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		queries:   queries,
		sseConfig: sseConfig,
		logger:    logger,
	}
}

// listingQueryFromRequest reads view parameters from the query string.
// The view defaults to "owned" so a bare GET /api/documents lists the
// caller's own documents.
func listingQueryFromRequest(r *http.Request) *services.ListingQuery {
	q := &services.ListingQuery{
		View:  services.ListingView(r.URL.Query().Get("view")),
		Query: r.URL.Query().Get("q"),
	}
	if q.View == "" {
		q.View = services.ViewOwned
	}
	if folderID := r.URL.Query().Get("folder_id"); folderID != "" {
		q.FolderID = &folderID
	}
	return q
}

// ListDocuments evaluates a view once against current state
// GET /api/documents?view={owned|starred|shared|folder|search}
func (h *ListingHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)
	q := listingQueryFromRequest(r)

	documents, err := h.queries.List(r.Context(), user, q)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, documents)
}

// StreamDocuments streams a view over SSE, re-projected on every collection
// commit
// GET /api/documents/stream?view=...
func (h *ListingHandler) StreamDocuments(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)
	q := listingQueryFromRequest(r)

	sub, err := h.queries.Subscribe(r.Context(), user, q)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	defer sub.Cancel()

	writer, ok := sse.NewEventWriter(w, "documents")
	if !ok {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	stopped := keepAlive.Start(writer, h.logger)
	defer keepAlive.Stop()

	h.logger.Debug("listing stream established", "user_id", user.ID, "view", q.View)

	for {
		select {
		case documents, open := <-sub.Updates():
			if !open {
				return
			}
			if err := writer.WriteEvent("documents", documents); err != nil {
				h.logger.Debug("listing stream write failed", "user_id", user.ID, "error", err)
				return
			}
		case <-stopped:
			return
		case <-r.Context().Done():
			return
		}
	}
}
