package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nexis-chat/nexis/gateway/pkg/errors"
)

// statusFor maps application error codes onto HTTP status codes.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeAlreadyExists:
		return http.StatusConflict
	case errors.CodeUnauthorized:
		return http.StatusUnauthorized
	case errors.CodeForbidden:
		return http.StatusForbidden
	case errors.CodeServiceUnavail:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the JSON error envelope. Internal errors are masked
// so upstream bodies and stack detail never reach the client.
func respondError(c *gin.Context, err error) {
	code := errors.CodeOf(err)
	message := err.Error()
	if code == errors.CodeInternal {
		message = "internal error"
	} else if appErr, ok := err.(*errors.AppError); ok {
		message = appErr.Message
	}
	c.JSON(statusFor(code), gin.H{
		"error": message,
		"code":  string(code),
	})
}
