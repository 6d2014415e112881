package models

import (
	"errors"
	"fmt"
)

// Result is what every service entry point returns: either the data, or a
// human-readable failure message. Services never panic on bad input.
type Result[T any] struct {
	Succeeded bool   `json:"succeeded"`
	Message   string `json:"message,omitempty"`
	Data      T      `json:"data"`
}

// Ok wraps data in a successful result.
func Ok[T any](data T) Result[T] {
	return Result[T]{Succeeded: true, Data: data}
}

// Fail builds a failed result.
func Fail[T any](format string, args ...any) Result[T] {
	return Result[T]{Message: fmt.Sprintf(format, args...)}
}

// Err converts a failed result into an error, or nil on success.
func (r Result[T]) Err() error {
	if r.Succeeded {
		return nil
	}
	if r.Message == "" {
		return errors.New("operation failed")
	}
	return errors.New(r.Message)
}
