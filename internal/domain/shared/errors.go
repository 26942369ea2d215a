package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that errors.Is(err, ErrNotFound) holds
// for any NOT_FOUND error regardless of its message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// MaxQuantity bounds every stored unit count; quantity columns are INTEGER.
const MaxQuantity = 1_000_000_000

// Error codes
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeInvalidAdjustment     = "INVALID_ADJUSTMENT"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeTokenExpired          = "TOKEN_EXPIRED"
	CodeTokenInvalid          = "TOKEN_INVALID"
	CodeTokenRevoked          = "TOKEN_REVOKED"
	CodeTokenMaxRefresh       = "TOKEN_MAX_REFRESH"
	CodeForbidden             = "FORBIDDEN"
	CodeAccountLocked         = "ACCOUNT_LOCKED"
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	CodeInvalidState          = "INVALID_STATE"
	CodeRateLimited           = "RATE_LIMITED"
	CodeExternalService       = "EXTERNAL_SERVICE_ERROR"
	CodeInternal              = "INTERNAL_ERROR"
)

// Common domain errors
var (
	ErrValidation            = NewDomainError(CodeValidation, "Invalid input provided")
	ErrInvalidAdjustment     = NewDomainError(CodeInvalidAdjustment, "Inventory quantity cannot be negative")
	ErrInvalidCredentials    = NewDomainError(CodeInvalidCredentials, "Invalid username or password")
	ErrUnauthorized          = NewDomainError(CodeUnauthorized, "Authentication required")
	ErrForbidden             = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrAccountLocked         = NewDomainError(CodeAccountLocked, "Account is locked")
	ErrNotFound              = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists         = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInsufficientInventory = NewDomainError(CodeInsufficientInventory, "Insufficient inventory")
	ErrInvalidState          = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrExternalService       = NewDomainError(CodeExternalService, "External service request failed")
	ErrInternal              = NewDomainError(CodeInternal, "Internal server error")
)

// IsCode reports whether err is a DomainError with the given code
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
