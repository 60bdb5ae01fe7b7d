package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyClaimed = errors.New("recording already claimed for transcription")
)

// ParseError reports a model response that did not contain parsable JSON.
// Raw carries the full model output for diagnosis; the failure is surfaced
// as-is, never silently retried with a different prompt.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse summary response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
