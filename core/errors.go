package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// PrecheckError indicates that an operation was rejected by an on-chain
// guard before it was ever submitted. The reason is safe to show as is.
type PrecheckError struct {
	Reason string
}

func NewPrecheckError(reason string) error {
	return &PrecheckError{reason}
}

func (err PrecheckError) Error() string {
	return err.Reason
}

func IsPrecheckError(err error) bool {
	_, ok := errors.Cause(err).(*PrecheckError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
