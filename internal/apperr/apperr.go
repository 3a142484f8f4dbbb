// Package apperr holds the error categories shared by services and handlers.
// Services wrap causes with these sentinels; handlers map them to status codes
// with errors.Is and never echo the wrapped detail to clients.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store error")
	ErrNotify     = errors.New("notification error")
)

// Validation returns an ErrValidation carrying a client-safe message.
func Validation(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Is(target error) bool { return target == ErrValidation }

// Store wraps a storage failure. Nil stays nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// Notify wraps a notifier failure. Nil stays nil.
func Notify(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrNotify, err)
}

// Message returns the client-safe text of a validation error, or fallback.
func Message(err error, fallback string) string {
	var v *validationError
	if errors.As(err, &v) {
		return v.msg
	}
	return fallback
}
