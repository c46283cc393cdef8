package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrInput     = errors.New("invalid input")
	ErrTransport = errors.New("remote service failure")
	ErrDecode    = errors.New("image decode failure")
	ErrParse     = errors.New("unstructured model response")
	ErrIO        = errors.New("output write failure")
)

// StepError reports which stage of a multi-step flow stopped it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// InputErrorf wraps a formatted message with ErrInput.
func InputErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, args...))
}
