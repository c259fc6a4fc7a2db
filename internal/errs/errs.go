// Package errs defines the stable error taxonomy shared by every component
// of the context runtime: promise tracking, the controller stack, and the
// file-access security controller. Every error the runtime raises carries
// one of the Code constants so callers can branch on errors.As without
// parsing messages.
package errs

import "fmt"

// Code is a stable, string identifier for an error kind. Codes never
// change meaning across releases.
type Code string

const (
	CodeInvalidArgType  Code = "ERR_INVALID_ARG_TYPE"
	CodeInvalidArgValue Code = "ERR_INVALID_ARG_VALUE"
	CodeInvalidOptValue Code = "ERR_INVALID_OPT_VALUE"
	CodeIndexOutOfRange Code = "ERR_INDEX_OUT_OF_RANGE"
	CodeNotImplemented  Code = "ERR_METHOD_NOT_IMPLEMENTED"
	CodeFileAccessDenied Code = "ERR_FILE_ACCESS_FORBIDDEN"
)

// ArgError reports that an argument or option had the wrong structural type
// or an unacceptable value. Name identifies the argument/option; Received is
// the value actually passed, kept for diagnostics.
type ArgError struct {
	code     Code
	Name     string
	Received any
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("%s: argument %q received invalid value %v", e.code, e.Name, e.Received)
}

// Code returns the stable error code.
func (e *ArgError) Code() Code { return e.code }

// NewInvalidArgType reports a structurally wrong argument type.
func NewInvalidArgType(name string, received any) error {
	return &ArgError{code: CodeInvalidArgType, Name: name, Received: received}
}

// NewInvalidArgValue reports a well-typed but unacceptable argument value.
func NewInvalidArgValue(name string, received any) error {
	return &ArgError{code: CodeInvalidArgValue, Name: name, Received: received}
}

// NewInvalidOptValue reports an unacceptable option value (e.g. a segment
// name collision under strict-controllers mode).
func NewInvalidOptValue(name string, received any) error {
	return &ArgError{code: CodeInvalidOptValue, Name: name, Received: received}
}

// RangeError reports an out-of-range operation, such as popping an empty
// controller stack.
type RangeError struct {
	Subject string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: index out of range on %s", CodeIndexOutOfRange, e.Subject)
}

func (e *RangeError) Code() Code { return CodeIndexOutOfRange }

// NewIndexOutOfRange reports an out-of-range stack operation.
func NewIndexOutOfRange(subject string) error {
	return &RangeError{Subject: subject}
}

// AccessError is raised when a file-access controller denies a call.
type AccessError struct {
	Path string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("Access to the file %q is forbidden by the current security context", e.Path)
}

func (e *AccessError) Code() Code { return CodeFileAccessDenied }

// NewFileAccessForbidden reports a denied file access for the given path.
func NewFileAccessForbidden(path string) error {
	return &AccessError{Path: path}
}

// NotImplementedError is raised when an abstract operation is invoked
// without being overridden by a concrete implementation.
type NotImplementedError struct {
	Method string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("%s: %s is not implemented", CodeNotImplemented, e.Method)
}

func (e *NotImplementedError) Code() Code { return CodeNotImplemented }

// NewNotImplemented reports that the named method has no concrete body.
func NewNotImplemented(method string) error {
	return &NotImplementedError{Method: method}
}
