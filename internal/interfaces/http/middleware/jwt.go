package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wms/backend/internal/domain/identity"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/auth"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTRoleKey    = "jwt_role"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator checks an access token, including revocations
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error)
}

// JWTAuth rejects requests without a valid bearer access token and stores
// the claims for downstream handlers
func JWTAuth(validator TokenValidator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			abortUnauthorized(c, shared.NewDomainError(shared.CodeUnauthorized, "Missing authorization header"))
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, shared.NewDomainError(shared.CodeTokenInvalid, "Invalid authorization header format"))
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		if tokenString == "" {
			abortUnauthorized(c, shared.NewDomainError(shared.CodeUnauthorized, "Missing token"))
			return
		}

		claims, err := validator.ValidateAccessToken(c.Request.Context(), tokenString)
		if err != nil {
			log.Debug("JWT authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			abortUnauthorized(c, err)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTRoleKey, claims.GetRole())
		c.Set(logger.GinUserIDKey, claims.UserID)

		ctx, _ := logger.WithUserID(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		domainErr = shared.NewDomainError(shared.CodeTokenInvalid, "Invalid token")
	}
	status := dto.GetHTTPStatus(domainErr.Code)
	if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
		status = http.StatusUnauthorized
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(domainErr.Code, domainErr.Message, GetRequestID(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUserID retrieves the user ID from JWT claims in context
func GetJWTUserID(c *gin.Context) string {
	if claims := GetJWTClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// GetJWTRole retrieves the role from JWT claims in context
func GetJWTRole(c *gin.Context) identity.Role {
	if role, exists := c.Get(JWTRoleKey); exists {
		if r, ok := role.(identity.Role); ok {
			return r
		}
	}
	return ""
}
