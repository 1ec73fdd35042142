package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"codeshare/internal/domain"
	"codeshare/internal/httputil"
)

// respondDomainError maps domain errors to HTTP status codes. Typed errors
// carry their own status; sentinel errors fall back to errors.Is matching.
// Unknown errors become 500 and are logged, since they indicate a bug or an
// unavailable backend rather than a client mistake.
func respondDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrPermissionDenied):
		httputil.RespondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrTimeout):
		httputil.RespondError(w, http.StatusGatewayTimeout, "store timed out")
	default:
		logger.Error("unexpected error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
