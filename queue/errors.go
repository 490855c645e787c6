package queue

import (
	"context"
	"errors"
	"fmt"
)

// ErrItemExists indicates an item with the same identifier was already added.
var ErrItemExists = errors.New("item already in queue")

// ErrItemNotFound indicates the identifier does not belong to any item.
var ErrItemNotFound = errors.New("item not found")

// ErrNoUploadFunc indicates a drain was requested without an upload function.
var ErrNoUploadFunc = errors.New("no upload function provided")

// ErrorCode classifies an upload failure so callers can handle outcomes
// exhaustively instead of matching on message text.
type ErrorCode uint8

const (
	// CodeNetwork covers transient transport failures. Retryable.
	CodeNetwork ErrorCode = iota
	// CodeTimeout covers attempts aborted by the per-attempt hard timeout.
	// Retryable.
	CodeTimeout
	// CodeCancelled covers explicit aborts. Terminal, never retried, and
	// not reported as a failure.
	CodeCancelled
	// CodeRejected covers failures the remote end reported as permanent.
	// Terminal.
	CodeRejected
	// CodeInternal covers orchestration faults such as a panicking upload
	// function. Retryable.
	CodeInternal
)

// String returns the lower-case name of the code.
func (c ErrorCode) String() string {
	switch c {
	case CodeNetwork:
		return "network"
	case CodeTimeout:
		return "timeout"
	case CodeCancelled:
		return "cancelled"
	case CodeRejected:
		return "rejected"
	case CodeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the structured failure attached to items in the error state.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether the failure is transient. Explicit cancellation
// and permanent rejection are not retried.
func (e *Error) Retryable() bool {
	return e.Code != CodeCancelled && e.Code != CodeRejected
}

// NewError creates a structured upload error.
func NewError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// classifyError maps an upload function failure to a structured Error.
// Upload functions may return *Error directly to control classification;
// anything else is classified from context state, defaulting to a transient
// network failure.
func classifyError(err error, timedOut bool) *Error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	if timedOut || errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeTimeout, "upload timed out: %v", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(CodeCancelled, "upload cancelled")
	}
	return NewError(CodeNetwork, "%v", err)
}
