package http

import (
	"net/http"

	"pos-saas/internal/domain"
)

// RespondError maps a domain.Error's Kind to the matching HTTP status
// and envelope; anything else is reported as 500.
func RespondError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindUnauthorized:
		UnauthorizedResponse(w, err.Error())
	case domain.KindConflict:
		ConflictResponse(w, err.Error())
	case domain.KindNotFound:
		NotFoundResponse(w, err.Error())
	case domain.KindInvalid, domain.KindInsufficientData:
		BadRequestResponse(w, err.Error())
	case domain.KindModelUnavailable:
		ErrorResponseWithMessage(w, err.Error(), http.StatusServiceUnavailable)
	case domain.KindTimeout:
		ErrorResponseWithMessage(w, err.Error(), http.StatusGatewayTimeout)
	default:
		InternalErrorResponse(w, err.Error())
	}
}
