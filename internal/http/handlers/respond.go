package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/scribe-backend/internal/http/response"
	"github.com/yungbote/scribe-backend/internal/platform/apierr"
)

// respondServiceError maps service-layer errors onto HTTP statuses. Anything
// not tagged as a client error becomes an opaque 500 so internals never leak.
func respondServiceError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		response.RespondError(c, status, ae.Code, ae)
		return
	}
	response.RespondError(c, http.StatusInternalServerError, "internal_error", errors.New("internal error"))
}
