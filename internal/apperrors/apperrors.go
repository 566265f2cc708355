// Package apperrors defines the error taxonomy shared by the consultant
// adapters and the surrounding infrastructure.
package apperrors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeUnknown   = "UNKNOWN"
	CodeConfig    = "CONFIG"    // required credentials missing at construction
	CodeTransport = "TRANSPORT" // network failure or non-success HTTP status
	CodeVendor    = "VENDOR"    // vendor signaled a logical failure
	CodeField     = "FIELD"     // field name outside the enumerated set
	CodeOperation = "OPERATION" // API operation outside the known endpoint tables
)

// ApplicationError is the interface implemented by all coded errors.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error is a coded application error.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *Error) Code() string {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the code carried by err, or CodeUnknown if it carries none.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return Code(err) == code
}

// NewConfigError reports credentials missing or invalid at adapter
// construction. The adapter is unusable.
func NewConfigError(message string, cause error) error {
	return &Error{code: CodeConfig, message: message, err: cause}
}

// NewTransportError reports a network failure or a non-success status from
// the vendor.
func NewTransportError(message string, cause error) error {
	return &Error{code: CodeTransport, message: message, err: cause}
}

// NewVendorError reports a logical failure signaled by the vendor in an
// otherwise successful response.
func NewVendorError(message string, cause error) error {
	return &Error{code: CodeVendor, message: message, err: cause}
}

// NewFieldError reports a field name outside the enumerated extraction set.
// This is a programming error, never recovered.
func NewFieldError(message string) error {
	return &Error{code: CodeField, message: message}
}

// NewOperationError reports an API operation outside the adapter's known
// endpoint tables. This is a programming error, never recovered.
func NewOperationError(message string) error {
	return &Error{code: CodeOperation, message: message}
}
