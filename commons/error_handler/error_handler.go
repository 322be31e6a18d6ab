package error_handler

import (
	"net/http"

	"cadbridge/commons/response"
)

// ErrorCollection gathers the errors of one request. A partial collection describes work that
// completed with some per-item failures; it is reported with HTTP 200.
type ErrorCollection struct {
	errors  []response.Errors
	partial bool
}

func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		errors: make([]response.Errors, 0),
	}
}

func (ec *ErrorCollection) AddError(code int, message string, data any) *ErrorCollection {
	ec.errors = append(ec.errors, response.Errors{
		ErrorCode: code,
		Message:   message,
		Data:      data,
	})
	return ec
}

// MarkPartial flags the collection as item failures inside an otherwise completed request.
func (ec *ErrorCollection) MarkPartial() *ErrorCollection {
	ec.partial = true
	return ec
}

func (ec *ErrorCollection) IsPartial() bool {
	return ec.partial
}

func (ec *ErrorCollection) HasErrors() bool {
	return len(ec.errors) > 0
}

func (ec *ErrorCollection) GetErrors() []response.Errors {
	return ec.errors
}

// GetHTTPStatus maps the first error to its status. Codes are HTTP statuses; a server error
// anywhere in the collection wins over client errors.
func (ec *ErrorCollection) GetHTTPStatus() int {
	if !ec.HasErrors() || ec.partial {
		return http.StatusOK
	}

	for _, err := range ec.errors {
		if err.ErrorCode >= 500 {
			return err.ErrorCode
		}
	}
	first := ec.errors[0].ErrorCode
	if first >= 400 && first < 500 {
		return first
	}
	return http.StatusBadRequest
}

// Common error codes
const (
	CodeValidationError     = 400
	CodeNotFound            = 404
	CodeConflict            = 409
	CodeInternalServerError = 500
	CodeBadGateway          = 502
	CodeServiceUnavailable  = 503
)

// Helper functions for common errors
func GetValidationError(message string) response.Errors {
	return response.Errors{
		ErrorCode: CodeValidationError,
		Message:   message,
		Data:      nil,
	}
}

func GetNotFoundError(message string) response.Errors {
	return response.Errors{
		ErrorCode: CodeNotFound,
		Message:   message,
		Data:      nil,
	}
}

func GetInternalServerError(message string) response.Errors {
	return response.Errors{
		ErrorCode: CodeInternalServerError,
		Message:   message,
		Data:      nil,
	}
}
