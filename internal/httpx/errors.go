package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/daniry/backoffice/internal/shared"
)

// RespondError maps domain errors to envelope responses. Unexpected
// errors are logged server-side and answered with a generic 500.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Fail(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, shared.ErrUnauthenticated):
		Fail(w, http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, shared.ErrForbidden):
		Fail(w, http.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, shared.ErrTokenInvalid):
		Fail(w, http.StatusBadRequest, "Invalid or expired token")
	case errors.Is(err, shared.ErrDuplicate):
		Fail(w, http.StatusConflict, "Duplicate entry")
	case errors.Is(err, shared.ErrMailDelivery):
		Fail(w, http.StatusBadGateway, "Request processed but the email could not be delivered")
	default:
		if logger != nil {
			logger.Error("internal error", slog.Any("error", err))
		}
		Fail(w, http.StatusInternalServerError, "Internal server error")
	}
}
