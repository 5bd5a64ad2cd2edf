package vmx

import "errors"

var (
	// ErrPendingQueueFull means a deferred interrupt could not be stored;
	// the caller must treat this as a lost event, not ignore it.
	ErrPendingQueueFull = errors.New("pending interrupt queue is full")

	// ErrUnexpectedExitReason is an exit this core has no handler for.
	ErrUnexpectedExitReason = errors.New("unexpected vm-exit reason")
)
