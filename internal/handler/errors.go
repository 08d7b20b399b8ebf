package handler

import (
	"net/http"

	"backend/internal/apperr"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindUnsupportedField:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the structured error envelope for err. Only the
// caller-safe message goes out; causes stay in the logs.
func abortWithError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	c.JSON(status, response.ErrorWithKind(status, string(kind), apperr.MessageOf(err)))
}
