// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/resource"
	"github.com/lumen-foundation/lumen/internal/session"
)

// Sentinel errors for the handler layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps errors to RFC7807 responses. Store failures carry their
// own human-readable message, which becomes the detail.
func RespondError(w http.ResponseWriter, err error) {
	var verr *content.ValidationError
	if errors.As(err, &verr) {
		JSON(w, http.StatusUnprocessableEntity, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Detail: err.Error(),
			Errors: verr.Fields,
		})
		return
	}
	var serr *resource.Error
	if errors.As(err, &serr) {
		status, title := storeStatus(serr.Kind)
		Problem(w, status, title, serr.Message())
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized), errors.Is(err, session.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, session.ErrEmailTaken):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, session.ErrRoleNotAllowed):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func storeStatus(kind resource.Kind) (int, string) {
	switch kind {
	case resource.KindNotFound:
		return http.StatusNotFound, "Not Found"
	case resource.KindPermissionDenied:
		return http.StatusForbidden, "Forbidden"
	case resource.KindUniqueConflict:
		return http.StatusConflict, "Duplicate"
	case resource.KindInvalid:
		return http.StatusBadRequest, "Validation Failed"
	case resource.KindSchemaMissing:
		return http.StatusServiceUnavailable, "Collection Unavailable"
	default:
		return http.StatusBadGateway, "Backend Error"
	}
}
