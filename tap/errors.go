package tap

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocol indicates the server violated the UWS/TAP wire
	// contract, e.g. a 303 submission response without a Location header.
	ErrProtocol = errors.New("tap protocol violation")

	// ErrResultNotReady indicates a result fetch was attempted while the
	// job was still in a non-terminal phase.
	ErrResultNotReady = errors.New("tap job result not ready")

	// ErrMissingResultURL indicates a completed job carried no result
	// locator. The status-document parser makes this unreachable for
	// well-formed documents; it guards the accessor path.
	ErrMissingResultURL = errors.New("tap job completed without a result url")

	// ErrPollBudgetExceeded indicates a bounded polling policy gave up
	// before the job reached a terminal phase.
	ErrPollBudgetExceeded = errors.New("tap polling budget exceeded")
)

// RejectedError is an immediate server-side rejection of a submission:
// the service answered the POST with a JSON error body instead of the
// 303 redirect to a job.
type RejectedError struct {
	Status  string
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// RemoteJobError means the remote job itself reached the ERROR phase.
// It carries the server-supplied message verbatim.
type RemoteJobError struct {
	Message string
}

func (e *RemoteJobError) Error() string {
	return e.Message
}

// PersistenceError is a local I/O or parse failure while persisting a
// fetched result.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting result to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
