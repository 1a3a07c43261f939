package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/awkns-projects/rom-gateway/internal/models"
)

// ErrorResponse is the standard error body: a machine-readable code and a
// human-readable message, never a stack trace.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorHandler maps the gateway error taxonomy onto stable status codes in
// one place, so handlers only record errors with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, models.ErrMissingToken),
			errors.Is(err, models.ErrInvalidSignature),
			errors.Is(err, models.ErrTokenExpired),
			errors.Is(err, models.ErrMalformedClaims):
			statusCode = http.StatusUnauthorized
		case errors.Is(err, models.ErrForbidden),
			errors.Is(err, models.ErrDocumentMismatch):
			statusCode = http.StatusForbidden
		case errors.Is(err, models.ErrRateLimited):
			statusCode = http.StatusTooManyRequests
		case errors.Is(err, models.ErrCiphertextFormat):
			statusCode = http.StatusBadRequest
		case errors.Is(err, models.ErrConnectionNotFound):
			statusCode = http.StatusNotFound
		}

		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  models.ErrorCode(err),
		})
	}
}
