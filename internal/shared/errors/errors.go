package errors

import (
	"errors"
	"fmt"
)

// Error types for the export run
type ErrorType string

const (
	ErrorTypeConfig     ErrorType = "CONFIG_ERROR"
	ErrorTypeConnection ErrorType = "CONNECTION_ERROR"
	ErrorTypeQuery      ErrorType = "QUERY_ERROR"
	ErrorTypeFileIO     ErrorType = "FILE_IO_ERROR"
	ErrorTypePublish    ErrorType = "PUBLISH_ERROR"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
)

// Common export errors
var (
	ErrMissingURI            = errors.New("mongodb uri is required")
	ErrInvalidDatabaseName   = errors.New("invalid database name")
	ErrInvalidCollectionName = errors.New("invalid collection name")
	ErrExportFailed          = errors.New("export failed")
)

// AppError represents an export error with the collection and operation it happened in
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Collection string                 `json:"collection,omitempty"`
	Operation  string                 `json:"operation,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if e.Collection != "" {
		msg = fmt.Sprintf("collection %q: %s", e.Collection, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WithCause adds the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithCollection sets the collection the error belongs to
func (e *AppError) WithCollection(collection string) *AppError {
	e.Collection = collection
	return e
}

// WithOperation sets the failing operation
func (e *AppError) WithOperation(operation string) *AppError {
	e.Operation = operation
	return e
}

// WithDetail adds a detail field
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common error constructors

// NewConfigError creates a configuration error
func NewConfigError(message string) *AppError {
	return NewAppError(ErrorTypeConfig, message)
}

// NewConnectionError creates a connection error
func NewConnectionError(message string) *AppError {
	return NewAppError(ErrorTypeConnection, message).WithOperation("connect")
}

// NewQueryError creates a query error for a collection
func NewQueryError(collection, message string) *AppError {
	return NewAppError(ErrorTypeQuery, message).WithCollection(collection).WithOperation("query")
}

// NewFileIOError creates a file I/O error for a collection
func NewFileIOError(collection, message string) *AppError {
	return NewAppError(ErrorTypeFileIO, message).WithCollection(collection).WithOperation("write")
}

// NewPublishError creates an event publishing error
func NewPublishError(message string) *AppError {
	return NewAppError(ErrorTypePublish, message).WithOperation("publish")
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, message)
}

// TypeOf returns the ErrorType of the first AppError in err's chain
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool {
	return TypeOf(err) == ErrorTypeConfig
}

// IsConnection checks if an error is a connection error
func IsConnection(err error) bool {
	return TypeOf(err) == ErrorTypeConnection
}

// IsQuery checks if an error is a query error
func IsQuery(err error) bool {
	return TypeOf(err) == ErrorTypeQuery
}

// IsFileIO checks if an error is a file I/O error
func IsFileIO(err error) bool {
	return TypeOf(err) == ErrorTypeFileIO || errors.Is(err, ErrInvalidCollectionName)
}

// CollectionFailure is one failed collection in a run that kept going
type CollectionFailure struct {
	Collection string `json:"collection"`
	Err        error  `json:"-"`
}

// CollectionErrors collects failures when collections are exported in isolation
type CollectionErrors struct {
	Failures []CollectionFailure `json:"failures"`
}

// NewCollectionErrors creates an empty collection error set
func NewCollectionErrors() *CollectionErrors {
	return &CollectionErrors{
		Failures: make([]CollectionFailure, 0),
	}
}

// Add records a failed collection
func (ce *CollectionErrors) Add(collection string, err error) *CollectionErrors {
	ce.Failures = append(ce.Failures, CollectionFailure{Collection: collection, Err: err})
	return ce
}

// HasErrors returns true if any collection failed
func (ce *CollectionErrors) HasErrors() bool {
	return len(ce.Failures) > 0
}

// Error implements the error interface
func (ce *CollectionErrors) Error() string {
	switch len(ce.Failures) {
	case 0:
		return ErrExportFailed.Error()
	case 1:
		return fmt.Sprintf("%s: %v", ErrExportFailed, ce.Failures[0].Err)
	default:
		return fmt.Sprintf("%s: %d collections failed, first: %v", ErrExportFailed, len(ce.Failures), ce.Failures[0].Err)
	}
}

// Unwrap exposes every collection failure to errors.Is and errors.As
func (ce *CollectionErrors) Unwrap() []error {
	errs := make([]error, 0, len(ce.Failures)+1)
	errs = append(errs, ErrExportFailed)
	for _, f := range ce.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
