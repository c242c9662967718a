package models

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrIllegalState = errors.New("illegal state")

// ConfigError is a startup failure: a bad syscall override table, an ambiguous
// instruction set, or an invalid memory layout. It never occurs mid-run.
type ConfigError struct {
	Source string
	Msg    string
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s: %s", e.Source, e.Msg)
}

func NewConfigError(source, format string, a ...interface{}) error {
	return errors.WithStack(&ConfigError{Source: source, Msg: fmt.Sprintf(format, a...)})
}

// InternalError marks a broken engine invariant, as opposed to a guest fault.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s: %v", e.Op, e.Err)
}

func (e *InternalError) Cause() error  { return e.Err }
func (e *InternalError) Unwrap() error { return e.Err }

func NewInternalError(op string, err error) error {
	return errors.WithStack(&InternalError{Op: op, Err: err})
}

// IsInternal reports whether err, or anything it wraps, is an *InternalError.
func IsInternal(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}

// AsConfig unwraps a *ConfigError from err.
func AsConfig(err error) (*ConfigError, bool) {
	var ce *ConfigError
	ok := errors.As(err, &ce)
	return ce, ok
}

// AsExit unwraps an ExitStatus from err.
func AsExit(err error) (ExitStatus, bool) {
	var status ExitStatus
	ok := errors.As(err, &status)
	return status, ok
}
