package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wms/backend/internal/domain/identity"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RequireRoles lets the request through only when the authenticated user
// holds one of roles. It must run after JWTAuth.
func RequireRoles(log *zap.Logger, roles ...identity.Role) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = r.String()
	}

	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				shared.CodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}

		role := claims.GetRole()
		if !role.In(roles...) {
			log.Warn("Permission denied",
				zap.String("user_id", claims.UserID),
				zap.String("role", role.String()),
				zap.Strings("required_any", allowed),
				zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
				shared.CodeForbidden, "Insufficient permissions", GetRequestID(c)))
			return
		}
		c.Next()
	}
}
