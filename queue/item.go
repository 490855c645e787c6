package queue

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/opd-ai/uploadqueue/strategy"
)

// Status represents the lifecycle state of an upload item.
type Status uint8

const (
	// StatusPending indicates the item is waiting in the queue.
	StatusPending Status = iota
	// StatusUploading indicates the item is in the active set.
	StatusUploading
	// StatusPaused indicates the item was uploading when the pipeline was
	// paused.
	StatusPaused
	// StatusCompleted indicates the upload finished successfully. Terminal.
	StatusCompleted
	// StatusError indicates the upload failed with its retry budget
	// exhausted. Terminal unless reset through RetryFailed.
	StatusError
	// StatusCancelled indicates the item was explicitly cancelled. Terminal.
	StatusCancelled
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusUploading:
		return "uploading"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status ends an item's lifecycle. Error is
// terminal here because only an explicit RetryFailed call leaves it.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// Item is one file tracked by the queue manager. Once added, the item is
// owned exclusively by the manager: all mutation happens inside its
// transition logic, and every read surface hands out value copies.
type Item struct {
	// ID is the opaque unique identifier, assigned at creation, immutable.
	ID string

	// Name, Size and MIME describe the already-validated file.
	Name string
	Size int64
	MIME string

	// Payload is the file's byte handle. The manager never reads it; it is
	// carried through to the upload function.
	Payload io.ReaderAt

	// Strategy determines how the bytes are transferred. Assigned once,
	// immutable after assignment.
	Strategy strategy.Strategy

	// Status is the current lifecycle state.
	Status Status

	// Progress is the transfer completion percentage, 0 to 100. It is
	// monotonically non-decreasing while uploading and resets to 0 when an
	// item is re-queued after a failure.
	Progress int

	// RetryCount is the number of retries consumed, bounded by the
	// manager's retry budget.
	RetryCount int

	// Err is the last failure. Set only in the error state.
	Err *Error

	// Result is the opaque value returned by the upload function. Set only
	// in the completed state.
	Result interface{}

	// StartedAt and EndedAt bound the most recent attempt, used for
	// throughput accounting.
	StartedAt time.Time
	EndedAt   time.Time
}

// NewItem creates a pending item for an already-validated file with a fresh
// identifier.
func NewItem(name string, size int64, mime string, payload io.ReaderAt, strat strategy.Strategy) *Item {
	return &Item{
		ID:       uuid.NewString(),
		Name:     name,
		Size:     size,
		MIME:     mime,
		Payload:  payload,
		Strategy: strat,
		Status:   StatusPending,
	}
}

// Result pairs a completed item with the opaque value its upload function
// returned, tagged with the strategy that produced it.
type Result struct {
	ItemID   string
	Name     string
	Strategy strategy.Strategy
	Value    interface{}
}
