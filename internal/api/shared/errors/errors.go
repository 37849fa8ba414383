package errors

import "encoding/json"

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeValidationError ErrorCode = "validation_error"
	ErrCodeUnauthorized    ErrorCode = "unauthorized"

	// Server errors (5xx)
	ErrCodeDBError     ErrorCode = "db_error"
	ErrCodeServerError ErrorCode = "server_error"
)

// APIError is the error envelope returned by every failing endpoint:
// {status, error_code, error_message, context}
type APIError struct {
	Status  string            `json:"status"`
	Code    ErrorCode         `json:"error_code"`
	Message string            `json:"error_message"`
	Context map[string]string `json:"context"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

func newAPIError(code ErrorCode, message string, context map[string]string) *APIError {
	if context == nil {
		context = map[string]string{}
	}
	return &APIError{
		Status:  "error",
		Code:    code,
		Message: message,
		Context: context,
	}
}

// NewValidationError reports a malformed or incomplete request (HTTP 400)
func NewValidationError(message string, context map[string]string) *APIError {
	return newAPIError(ErrCodeValidationError, message, context)
}

// NewUnauthorizedError reports a failed authentication (HTTP 401)
func NewUnauthorizedError(message string) *APIError {
	return newAPIError(ErrCodeUnauthorized, message, nil)
}

// NewDatabaseError reports a storage failure (HTTP 500). The message must not
// leak internal detail; the cause is logged server-side.
func NewDatabaseError(message string) *APIError {
	return newAPIError(ErrCodeDBError, message, nil)
}

// NewInternalError reports any other server failure (HTTP 500)
func NewInternalError(message string) *APIError {
	return newAPIError(ErrCodeServerError, message, nil)
}
