package expression

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode categorises compilation errors.
type ErrorCode string

const (
	// ErrCodeLex indicates a malformed token in the input.
	ErrCodeLex ErrorCode = "LEX_ERROR"

	// ErrCodeParse indicates a token sequence that violates the grammar.
	ErrCodeParse ErrorCode = "PARSE_ERROR"

	// ErrCodeUnknownProperty indicates an identifier that does not resolve
	// against the active scope.
	ErrCodeUnknownProperty ErrorCode = "UNKNOWN_PROPERTY"

	// ErrCodeNotImplemented indicates a valid construct that no registered
	// listener can translate.
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// ErrCodeModelInconsistent indicates a data model that cannot support an
	// otherwise valid expression. This is a server fault.
	ErrCodeModelInconsistent ErrorCode = "MODEL_INCONSISTENT"
)

// Error is returned by every stage of expression compilation.
//
// Compilation aborts on the first Error; no partial fragment is produced.
// All codes except ErrCodeModelInconsistent are attributable to the request.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Pos is the byte offset in the expression, or -1 when not applicable.
	Pos int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s: %s (at offset %d)", e.Code, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client reports whether the error is caused by the request.
func (e *Error) Client() bool {
	return e.Code != ErrCodeModelInconsistent
}

// Status returns the protocol status a request handler should respond with.
func (e *Error) Status() int {
	switch e.Code {
	case ErrCodeNotImplemented:
		return http.StatusNotImplemented
	case ErrCodeModelInconsistent:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// NewLexError creates an error for a malformed token at pos.
func NewLexError(pos int, format string, args ...any) *Error {
	return &Error{Code: ErrCodeLex, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// NewParseError creates an error for a grammar violation at pos.
func NewParseError(pos int, format string, args ...any) *Error {
	return &Error{Code: ErrCodeParse, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// NewUnknownPropertyError creates an error for an unresolvable identifier.
func NewUnknownPropertyError(pos int, name, typeName string) *Error {
	return &Error{
		Code:    ErrCodeUnknownProperty,
		Message: fmt.Sprintf("property %q is not declared on %s", name, typeName),
		Pos:     pos,
	}
}

// NewNotImplementedError creates an error for an untranslatable construct.
func NewNotImplementedError(pos int, format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotImplemented, Message: fmt.Sprintf(format, args...), Pos: pos}
}

// NewModelError creates an error for an inconsistent data model.
func NewModelError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeModelInconsistent, Message: fmt.Sprintf(format, args...), Pos: -1}
}

// IsCode reports whether err wraps an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsClientError reports whether err wraps an *Error caused by the request.
func IsClientError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Client()
	}
	return false
}

// IsServerError reports whether err wraps an *Error caused by the data model.
func IsServerError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return !e.Client()
	}
	return false
}
