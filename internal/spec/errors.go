package spec

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes generation errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"

	InvalidCategory              ErrorCode = "InvalidCategory"
	MismatchedType               ErrorCode = "MismatchedType"
	Unresolvable                 ErrorCode = "Unresolvable"
	FileReadFailure              ErrorCode = "FileReadFailure"
	CyclicReference              ErrorCode = "CyclicReference"
	MissingOperationID           ErrorCode = "MissingOperationId"
	DuplicateOperationID         ErrorCode = "DuplicateOperationId"
	DuplicateRoute               ErrorCode = "DuplicateRoute"
	DuplicateTypeName            ErrorCode = "DuplicateTypeName"
	MissingSchemaTitle           ErrorCode = "MissingSchemaTitle"
	MissingSchema                ErrorCode = "MissingSchema"
	UnsupportedSchemaType        ErrorCode = "UnsupportedSchemaType"
	UnsupportedParameterLocation ErrorCode = "UnsupportedParameterLocation"
	UnsupportedMediaType         ErrorCode = "UnsupportedMediaType"
	UnsupportedPath              ErrorCode = "UnsupportedPath"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Cause       error

	// Actual and Expected are set for MismatchedType.
	Actual   Category
	Expected Category
}

func (e *SpecError) Error() string {
	if e.JSONPointer != "" {
		return fmt.Sprintf("%s: %s", e.JSONPointer, e.Message)
	}
	return e.Message
}

func (e *SpecError) Unwrap() error { return e.Cause }

// Is matches another *SpecError by code, so the sentinels below work with
// errors.Is.
func (e *SpecError) Is(target error) bool {
	var t *SpecError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// At returns a copy of e qualified with a JSON pointer. An existing pointer
// is kept, since it is closer to the failure.
func (e *SpecError) At(pointer string) *SpecError {
	c := *e
	if c.JSONPointer == "" {
		c.JSONPointer = pointer
	}
	return &c
}

// Sentinels for errors.Is.
var (
	ErrInvalidCategory              = &SpecError{Code: InvalidCategory}
	ErrMismatchedType               = &SpecError{Code: MismatchedType}
	ErrUnresolvable                 = &SpecError{Code: Unresolvable}
	ErrFileReadFailure              = &SpecError{Code: FileReadFailure}
	ErrCyclicReference              = &SpecError{Code: CyclicReference}
	ErrMissingOperationID           = &SpecError{Code: MissingOperationID}
	ErrDuplicateOperationID         = &SpecError{Code: DuplicateOperationID}
	ErrDuplicateRoute               = &SpecError{Code: DuplicateRoute}
	ErrDuplicateTypeName            = &SpecError{Code: DuplicateTypeName}
	ErrMissingSchemaTitle           = &SpecError{Code: MissingSchemaTitle}
	ErrMissingSchema                = &SpecError{Code: MissingSchema}
	ErrUnsupportedSchemaType        = &SpecError{Code: UnsupportedSchemaType}
	ErrUnsupportedParameterLocation = &SpecError{Code: UnsupportedParameterLocation}
	ErrUnsupportedMediaType         = &SpecError{Code: UnsupportedMediaType}
	ErrUnsupportedPath              = &SpecError{Code: UnsupportedPath}
)

// Errorf builds a SpecError with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *SpecError {
	return &SpecError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Prefix prepends context to the message of err. A SpecError keeps its code
// and pointer.
func Prefix(err error, context string) error {
	if err == nil {
		return nil
	}
	var se *SpecError
	if errors.As(err, &se) {
		c := *se
		c.Message = context + ": " + se.Message
		return &c
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Qualify attaches pointer to err when err is a SpecError without one.
// Other errors are wrapped with the pointer as a prefix.
func Qualify(err error, pointer string) error {
	if err == nil {
		return nil
	}
	var se *SpecError
	if errors.As(err, &se) {
		return se.At(pointer)
	}
	return fmt.Errorf("%s: %w", pointer, err)
}
