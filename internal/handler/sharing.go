package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"codeshare/internal/domain/models"
	"codeshare/internal/domain/services"
	"codeshare/internal/httputil"
)

// SharingHandler handles ACL mutation HTTP requests
type SharingHandler struct {
	sharing services.SharingService
	logger  *slog.Logger
}

// NewSharingHandler creates a new sharing handler
func NewSharingHandler(sharing services.SharingService, logger *slog.Logger) *SharingHandler {
	return &SharingHandler{
		sharing: sharing,
		logger:  logger,
	}
}

// ShareDocument grants a recipient access to a document
// POST /api/documents/{id}/shares
func (h *SharingHandler) ShareDocument(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document ID is required")
		return
	}

	var req services.ShareRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.sharing.Share(r.Context(), user, id, &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// RevokeShare removes a grant
// DELETE /api/documents/{id}/shares/{key}
func (h *SharingHandler) RevokeShare(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)

	id := r.PathValue("id")
	key, err := shareKeyFromPath(r)
	if id == "" || err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "document ID and share key are required")
		return
	}

	doc, err := h.sharing.Revoke(r.Context(), user, id, key)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// UpdateShare replaces a grant's permission in place
// PATCH /api/documents/{id}/shares/{key}
func (h *SharingHandler) UpdateShare(w http.ResponseWriter, r *http.Request) {
	user := httputil.GetUser(r)

	id := r.PathValue("id")
	key, err := shareKeyFromPath(r)
	if id == "" || err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "document ID and share key are required")
		return
	}

	var req services.UpdateShareRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.sharing.UpdatePermission(r.Context(), user, id, key, &req)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// shareKeyFromPath parses the {key} path segment. Canonical "user:<id>" and
// "email:<address>" forms are accepted; a bare value containing an @ is
// treated as an email for convenience.
func shareKeyFromPath(r *http.Request) (models.ShareKey, error) {
	raw := r.PathValue("key")
	if !strings.Contains(raw, ":") && strings.Contains(raw, "@") {
		return models.EmailKey(raw), nil
	}
	return models.ParseShareKey(raw)
}
