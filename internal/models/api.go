package models

import "errors"

// APIResponse is the uniform envelope returned by the HTTP surface:
// {success, error_code, message, data}.
type APIResponse struct {
	Success   bool `json:"success"`
	ErrorCode int  `json:"error_code"`
	Message   any  `json:"message"`
	Data      any  `json:"data"`
}

// APIResponseBuilder provides a fluent interface for constructing responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new response builder with success defaults.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{response: APIResponse{Success: true}}
}

// WithMessage sets the response message.
func (b *APIResponseBuilder) WithMessage(message any) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithData sets the response payload.
func (b *APIResponseBuilder) WithData(data any) *APIResponseBuilder {
	b.response.Data = data
	return b
}

// WithError marks the response failed with the given code.
func (b *APIResponseBuilder) WithError(code int, message any) *APIResponseBuilder {
	b.response.Success = false
	b.response.ErrorCode = code
	b.response.Message = message
	b.response.Data = nil
	return b
}

// Build returns the constructed response.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful response with the given data.
func Success(message any, data any) APIResponse {
	return APIResponse{Success: true, Message: message, Data: data}
}

// Failure creates a failed response with the given code and message.
func Failure(code int, message any) APIResponse {
	return APIResponse{Success: false, ErrorCode: code, Message: message}
}

// ErrorCodeFor maps core errors to the error_code surfaced at the boundary.
func ErrorCodeFor(err error) int {
	var (
		validation  *ValidationError
		referential *ReferentialIntegrityError
		exists      *AlreadyExistsError
		notFound    *NotFoundError
		dailyLimit  *DailyLimitExceededError
		inProgress  *EventAlreadyInProgressError
	)
	switch {
	case errors.As(err, &validation):
		return 422
	case errors.As(err, &exists):
		return 422
	case errors.As(err, &referential):
		return 422
	case errors.As(err, &notFound), errors.Is(err, ErrNotFound):
		return 404
	case errors.As(err, &dailyLimit), errors.Is(err, ErrQuotaExhausted):
		return 429
	case errors.As(err, &inProgress), errors.Is(err, ErrEventAlreadyInProgress):
		return 409
	case errors.Is(err, ErrAccessDenied):
		return 403
	default:
		return 500
	}
}

// MessageFor renders an error for the envelope: ValidationError items are
// returned as a structured list, everything else as a plain string.
func MessageFor(err error) any {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Items
	}
	return err.Error()
}
