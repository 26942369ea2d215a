package dto

import (
	"net/http"

	"github.com/wms/backend/internal/domain/shared"
)

// Transport-only error codes that never come out of a service
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	shared.CodeValidation:        http.StatusBadRequest,
	shared.CodeInvalidAdjustment: http.StatusBadRequest,
	ErrCodeBadRequest:            http.StatusBadRequest,

	// Auth errors
	shared.CodeInvalidCredentials: http.StatusUnauthorized,
	shared.CodeUnauthorized:       http.StatusUnauthorized,
	shared.CodeTokenExpired:       http.StatusUnauthorized,
	shared.CodeTokenInvalid:       http.StatusUnauthorized,
	shared.CodeTokenRevoked:       http.StatusUnauthorized,
	shared.CodeTokenMaxRefresh:    http.StatusUnauthorized,
	shared.CodeForbidden:          http.StatusForbidden,
	shared.CodeAccountLocked:      http.StatusForbidden,

	// Resource errors
	shared.CodeNotFound:      http.StatusNotFound,
	shared.CodeAlreadyExists: http.StatusConflict,

	// Business rule errors -> 409 Conflict
	shared.CodeInsufficientInventory: http.StatusConflict,
	shared.CodeInvalidState:          http.StatusConflict,

	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,
	shared.CodeRateLimited:     http.StatusTooManyRequests,
	shared.CodeExternalService: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
