// Package errors defines the coded failure taxonomy of the update engine.
//
// Every failure the engine can observe is recovered locally; the code is what
// ends up in logs and in the journal so that operators can tell a flaky
// network apart from a broken release feed or a misbehaving provider.
package errors

import "errors"

// Code identifies a structured error type used across the application.
type Code string

const (
	// Generic codes
	CodeUnknown Code = "unknown"

	// Release query failures
	CodeTransport    Code = "transport_failure"
	CodeProtocol     Code = "protocol_failure"
	CodeNoVersionTag Code = "no_version_tag"

	// Update provider failures
	CodeProvider Code = "provider_failure"

	CodeConfigurationError Code = "configuration_error"
)

// Category folds specific codes into the three failure classes the engine
// distinguishes. A missing version tag is a protocol failure.
func (c Code) Category() Code {
	switch c {
	case CodeNoVersionTag:
		return CodeProtocol
	case "":
		return CodeUnknown
	default:
		return c
	}
}

// Error represents a structured error with a machine-readable code plus message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

// Unwrap returns the wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// New wraps an error with a code/message.
func New(code Code, msg string, err error) Error {
	return Error{Code: code, Message: msg, Err: err}
}

// CodeOf walks the error chain and returns the first structured code found.
func CodeOf(err error) Code {
	var structured Error
	if errors.As(err, &structured) {
		return structured.Code
	}
	return CodeUnknown
}

// IsCode reports whether the error (or its unwrap chain) matches the provided code.
// Category codes match their specific members, so IsCode(err, CodeProtocol)
// is true for a no_version_tag failure.
func IsCode(err error, code Code) bool {
	got := CodeOf(err)
	return got == code || got.Category() == code
}
