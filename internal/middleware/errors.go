package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"safe-gateway-lite/internal/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// AbortWithError renders err with the status of its kind and stops the
// chain. Errors without a kind are internal and their text is not exposed.
func AbortWithError(c *gin.Context, err error) {
	kind, ok := apperr.Kind(err)
	if !ok {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{
			StatusCode: http.StatusInternalServerError,
			Code:       "Internal",
			Message:    "Internal server error",
		})
		return
	}
	c.AbortWithStatusJSON(kind.HTTPStatus(), ErrorBody{
		StatusCode: kind.HTTPStatus(),
		Code:       kind.Code(),
		Message:    apperr.Message(err),
	})
}
