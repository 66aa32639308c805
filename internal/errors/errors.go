package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeFetch covers network and HTTP failures for the listing page or a file.
	ErrTypeFetch ErrorType = "FETCH"
	// ErrTypeStructureNotFound marks a spreadsheet whose header row was not found.
	ErrTypeStructureNotFound ErrorType = "STRUCTURE_NOT_FOUND"
	// ErrTypeUnsupportedFormat marks a file extension no engine can parse.
	ErrTypeUnsupportedFormat ErrorType = "UNSUPPORTED_FORMAT"
	// ErrTypeRowCoercion marks a row whose required field failed type coercion.
	ErrTypeRowCoercion ErrorType = "ROW_COERCION"
	// ErrTypeFatalIO marks an unwritable staging or output location.
	ErrTypeFatalIO ErrorType = "FATAL_IO"
	// ErrTypeConfig marks invalid or missing configuration.
	ErrTypeConfig ErrorType = "CONFIG"
	// ErrTypeParsing marks a source file that could be opened but not read.
	ErrTypeParsing ErrorType = "PARSING"
)

// Sentinels for errors.Is comparisons against a whole error type.
var (
	ErrFetch             = &AppError{Type: ErrTypeFetch}
	ErrStructureNotFound = &AppError{Type: ErrTypeStructureNotFound}
	ErrUnsupportedFormat = &AppError{Type: ErrTypeUnsupportedFormat}
	ErrRowCoercion       = &AppError{Type: ErrTypeRowCoercion}
	ErrFatalIO           = &AppError{Type: ErrTypeFatalIO}
	ErrConfig            = &AppError{Type: ErrTypeConfig}
	ErrParsing           = &AppError{Type: ErrTypeParsing}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	if e.Message == "" {
		return fmt.Sprintf("[%s]", e.Type)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches a bare sentinel of the same type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewFetchError creates a network or HTTP failure error
func NewFetchError(url string, cause error) *AppError {
	return NewAppError(ErrTypeFetch, fmt.Sprintf("fetch %s", url), cause).WithContext("url", url)
}

// NewStructureNotFoundError creates an error for a file without a detectable header row
func NewStructureNotFoundError(path, detail string) *AppError {
	return NewAppError(ErrTypeStructureNotFound, fmt.Sprintf("no header row in %s: %s", path, detail), nil).
		WithContext("path", path)
}

// NewUnsupportedFormatError creates an error for an unrecognized file extension
func NewUnsupportedFormatError(path, ext string) *AppError {
	return NewAppError(ErrTypeUnsupportedFormat, fmt.Sprintf("unsupported extension %q for %s", ext, path), nil).
		WithContext("path", path).
		WithContext("extension", ext)
}

// NewRowCoercionError creates an error for a required field that failed coercion
func NewRowCoercionError(field, value string, cause error) *AppError {
	return NewAppError(ErrTypeRowCoercion, fmt.Sprintf("coerce %s %q", field, value), cause).
		WithContext("field", field).
		WithContext("value", value)
}

// NewFatalIOError creates an error for an unwritable staging or output location
func NewFatalIOError(message string, cause error) *AppError {
	return NewAppError(ErrTypeFatalIO, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// TypeOf returns the type of the first AppError in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type, true
	}
	return "", false
}

// IsType reports whether err's chain holds an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	got, ok := TypeOf(err)
	return ok && got == t
}

// IsRecoverable reports whether err only excludes one file or row from a run.
// Everything else aborts the run.
func IsRecoverable(err error) bool {
	t, ok := TypeOf(err)
	if !ok {
		return false
	}
	switch t {
	case ErrTypeStructureNotFound, ErrTypeUnsupportedFormat, ErrTypeRowCoercion, ErrTypeParsing:
		return true
	default:
		return false
	}
}
