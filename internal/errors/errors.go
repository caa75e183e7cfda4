package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeFilesystem       ErrorType = "FILESYSTEM"
	ErrorTypeEmptyResult      ErrorType = "EMPTY_RESULT"
	ErrorTypeMalformedArchive ErrorType = "MALFORMED_ARCHIVE"
	ErrorTypeInvalidSelection ErrorType = "INVALID_SELECTION"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND"
	ErrorTypeValidation       ErrorType = "VALIDATION"
	ErrorTypeInternal         ErrorType = "INTERNAL"
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Path    string    `json:"path,omitempty"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Filesystem reports an unreadable root, a missing archive or an unwritable
// target. Missing paths map to 404, everything else to 500.
func Filesystem(message, path string, err error) *Error {
	code := http.StatusInternalServerError
	if stderrors.Is(err, fs.ErrNotExist) {
		code = http.StatusNotFound
	}
	return &Error{
		Type:    ErrorTypeFilesystem,
		Message: message,
		Path:    path,
		Code:    code,
		Err:     err,
	}
}

// EmptyResult means an archive held no records at all
func EmptyResult(message string) *Error {
	return &Error{
		Type:    ErrorTypeEmptyResult,
		Message: message,
		Code:    http.StatusUnprocessableEntity,
	}
}

// MalformedArchive means a start marker was never closed, or a record path
// cannot be materialized safely.
func MalformedArchive(message, path string, details any) *Error {
	return &Error{
		Type:    ErrorTypeMalformedArchive,
		Message: message,
		Path:    path,
		Code:    http.StatusUnprocessableEntity,
		Details: details,
	}
}

func InvalidSelection(selection string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidSelection,
		Message: fmt.Sprintf("invalid selection %q", selection),
		Code:    http.StatusBadRequest,
	}
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

func Internal(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
		Err:     err,
	}
}

// As finds the first *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err's chain carries an *Error of the given type
func Is(err error, t ErrorType) bool {
	e, ok := As(err)
	return ok && e.Type == t
}

// StatusCode maps err to an HTTP status; untyped errors are 500
func StatusCode(err error) int {
	if e, ok := As(err); ok && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}
