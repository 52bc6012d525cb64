// Package response is the single JSON envelope every handler replies with,
// so relay and memory endpoints fail in the same shape.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the client-facing error body. Message is safe to show; Code is
// the stable machine-readable tag from apierr.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
