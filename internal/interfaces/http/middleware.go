package http

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nexis-chat/nexis/gateway/internal/infrastructure/auth"
	"github.com/nexis-chat/nexis/gateway/pkg/errors"
)

const claimsContextKey = "auth.claims"

// authMiddleware verifies the Bearer token and stores the claims on the
// request context. Installed on /v1 only when a signing secret is
// configured.
func authMiddleware(tokens *auth.TokenService, tenants *auth.TenantStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeAuthError(c, errors.NewUnauthorizedError("missing bearer token"))
			return
		}

		claims, err := tokens.VerifyToken(raw)
		if err != nil {
			writeAuthError(c, err)
			return
		}
		tenants.Register(auth.ExtractTenant(claims).TenantID)

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

func writeAuthError(c *gin.Context, err error) {
	code := errors.CodeOf(err)
	message := err.Error()
	if appErr, ok := err.(*errors.AppError); ok {
		message = appErr.Message
	}
	c.AbortWithStatusJSON(statusForCode(code), gin.H{
		"error": message,
		"code":  string(code),
	})
}

func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.CodeUnauthorized:
		return 401
	case errors.CodeForbidden:
		return 403
	default:
		return 500
	}
}
