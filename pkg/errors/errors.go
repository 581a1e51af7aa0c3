// Package errors defines the typed error vocabulary shared by stores,
// services, and the HTTP layer. Codes travel with the error so transport
// code can map outcomes to status codes without string matching.
package errors

import "net/http"

// Code classifies an error for transport mapping and logging.
type Code string

const (
	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	CodeForbidden    Code = "forbidden"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"
)

// Error carries a code alongside a human-readable message.
type Error struct {
	Code    Code
	Message string
}

func (e Error) Error() string { return e.Message }

// New builds a coded error.
func New(code Code, message string) Error {
	return Error{Code: code, Message: message}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	coded, ok := err.(Error)
	return ok && coded.Code == code
}

// ToHTTPStatus maps an error code to an HTTP status. Unknown codes map to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
