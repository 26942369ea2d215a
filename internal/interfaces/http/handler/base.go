// Package handler contains the gin handlers of the WMS API. Handlers bind
// and validate input, call one application service method and render the
// response envelope.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/interfaces/http/dto"
	"github.com/wms/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

const genericErrorMessage = "An unexpected error occurred"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Message sends a success response carrying only a message
func (h *BaseHandler) Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, dto.NewMessageResponse(message))
}

// List sends a paginated success response
func List[T any](c *gin.Context, page *shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewListResponse(*page))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, message, middleware.GetRequestID(c)))
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(shared.CodeUnauthorized, message, middleware.GetRequestID(c)))
}

// HandleError converts service errors to HTTP responses. Errors that are
// not domain errors are logged and answered with a generic 500; the real
// message is only exposed in debug mode.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := middleware.GetRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetHTTPStatus(domainErr.Code)
		if status >= http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("Request failed",
				zap.String("code", domainErr.Code), zap.Error(err))
		}
		c.JSON(status, dto.NewDomainErrorResponse(domainErr, requestID))
		return
	}

	logger.FromContext(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	message := genericErrorMessage
	if gin.IsDebugging() {
		message = err.Error()
	}
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(shared.CodeInternal, message, requestID))
}

// bindJSON binds the request body into req, answering 400 on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.bindError(c, err, "Invalid request body")
		return false
	}
	return true
}

// bindQuery binds query parameters into req, answering 400 on failure
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.bindError(c, err, "Invalid query parameters")
		return false
	}
	return true
}

func (h *BaseHandler) bindError(c *gin.Context, err error, fallback string) {
	if fields := middleware.ValidationFields(err); fields != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			"Request validation failed", middleware.GetRequestID(c), fields))
		return
	}
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(shared.CodeValidation, fallback, middleware.GetRequestID(c)))
}

// uuidParam parses a path parameter, answering 400 when it is not a UUID
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(shared.CodeValidation,
			"Invalid "+name+" format", middleware.GetRequestID(c)))
		return uuid.Nil, false
	}
	return id, true
}

// currentUserID returns the authenticated user, answering 401 when absent
func (h *BaseHandler) currentUserID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, false
	}
	id, err := claims.GetUserUUID()
	if err != nil {
		h.Unauthorized(c, "Invalid user in token")
		return uuid.Nil, false
	}
	return id, true
}
