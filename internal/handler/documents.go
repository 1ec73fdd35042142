package handler

import (
	"log/slog"
	"net/http"
	"time"

	"codeshare/internal/domain/models"
	"codeshare/internal/domain/services"
	"codeshare/internal/httputil"
)

// DocumentHandler handles document lifecycle HTTP requests
type DocumentHandler struct {
	docs   services.DocumentService
	logger *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docs services.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		docs:   docs,
		logger: logger,
	}
}

// documentResponse pairs a document with the requesting user's resolved
// permission on it.
type documentResponse struct {
	*models.Document
	Permission models.PermissionLevel `json:"permission"`
}

// CreateDocument creates a new file or folder
// POST /api/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)

	var req services.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.docs.Create(r.Context(), user, &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, documentResponse{
		Document:   doc,
		Permission: models.PermissionOwner,
	})
}

// GetDocument retrieves a document by ID
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document ID is required")
		return
	}

	doc, perm, err := h.docs.Get(r.Context(), user, id)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, documentResponse{
		Document:   doc,
		Permission: perm,
	})
}

// UpdateDocument renames or stars a document
// PATCH /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document ID is required")
		return
	}

	var req services.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.docs.Update(r.Context(), user, id, &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DeleteDocument tombstones a document
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document ID is required")
		return
	}

	if err := h.docs.Delete(r.Context(), user, id); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck is a simple health check endpoint
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}
