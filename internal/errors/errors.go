package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrProtocol    = "PROTOCOL"      // malformed status-stream line
	ErrDuplicate   = "DUPLICATE"     // object identity already present
	ErrNotFound    = "NOT_FOUND"     // line references an object that does not exist
	ErrTaskState   = "TASK_STATE"    // invalid task queue transition
	ErrQueueFull   = "QUEUE_FULL"    // task queue at capacity
	ErrSource      = "SOURCE"        // status-stream helper failed
	ErrStreamIO    = "STREAM_IO"     // reading the status stream failed
	ErrSpawn       = "SPAWN"         // child process could not be started
	ErrOutOfMemory = "OUT_OF_MEMORY" // internal resource exhaustion
	ErrConfig      = "CONFIG"
	ErrSSH         = "SSH"
	ErrExec        = "EXEC"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrExec code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrExec,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface with the multi-line CLI layout.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Short returns a single-line rendering for places with no room for the
// multi-line layout, like the message log.
func (e *Error) Short() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var monErr *Error
	if errors.As(err, &monErr) {
		return monErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost structured Error in the chain,
// or an empty string.
func CodeOf(err error) string {
	var monErr *Error
	if errors.As(err, &monErr) {
		return monErr.Code
	}
	return ""
}

// Summary renders any error on one line.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	var monErr *Error
	if errors.As(err, &monErr) {
		return monErr.Short()
	}
	return err.Error()
}

// SuggestionOf returns the suggestion of the outermost structured Error in
// the chain, or an empty string.
func SuggestionOf(err error) string {
	var monErr *Error
	if errors.As(err, &monErr) {
		return monErr.Suggestion
	}
	return ""
}
