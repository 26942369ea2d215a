package dto

import "github.com/wms/backend/internal/domain/shared"

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ListResponse represents a paginated API response. Pagination fields sit
// next to data rather than under a meta object.
type ListResponse struct {
	Success    bool  `json:"success"`
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Fields    []FieldError   `json:"fields,omitempty"`
}

// FieldError describes one rejected request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewMessageResponse creates a success response carrying only a message
func NewMessageResponse(message string) Response {
	return Response{
		Success: true,
		Message: message,
	}
}

// NewListResponse flattens a paginated result into the list envelope
func NewListResponse[T any](page shared.Paginated[T]) ListResponse {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	return ListResponse{
		Success:    true,
		Data:       items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// NewDomainErrorResponse creates an error response from a domain error, keeping its details
func NewDomainErrorResponse(err *shared.DomainError, requestID string) Response {
	resp := NewErrorResponse(err.Code, err.Message, requestID)
	resp.Error.Details = err.Details
	return resp
}

// NewValidationErrorResponse creates a validation error response with per-field details
func NewValidationErrorResponse(message, requestID string, fields []FieldError) Response {
	resp := NewErrorResponse(shared.CodeValidation, message, requestID)
	resp.Error.Fields = fields
	return resp
}
