package handlers

import (
	"errors"
	"net/http"

	"busfleet/internal/services"
	"busfleet/internal/utils"

	"github.com/gin-gonic/gin"
)

// handleServiceError translates the domain error taxonomy to HTTP responses.
// Anything outside the taxonomy is a 500 with the detail kept server-side.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, "Resource")
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "You are not allowed to perform this action")
	case errors.Is(err, services.ErrConflict):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrWindowExpired):
		utils.GoneResponse(c, "The acceptance window has expired")
	case errors.Is(err, services.ErrInvalidTarget):
		utils.UnprocessableResponse(c, err.Error())
	case errors.Is(err, services.ErrStoreUnavailable):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "The assignment store is temporarily unavailable")
	default:
		utils.InternalServerErrorResponse(c)
	}
}
