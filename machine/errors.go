package machine

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is wrapped by a CommunicationError when the controller did not answer in time.
	ErrTimeout = errors.New("timeout")

	// ErrNotImplemented is returned for operations a controller does not support.
	ErrNotImplemented = errors.New("not implemented")

	ErrNotInitialized = errors.New("machine not initialized")
	ErrInvalidState   = errors.New("invalid machine state")
)

// CommunicationError is returned when a command could not be completed
// because of the transport or the controller.
type CommunicationError struct {
	Command string
	Message string
	Err     error
}

func (e *CommunicationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("communication error on %s: %s", e.Command, e.Message)
	}
	return fmt.Sprintf("communication error on %s: %s: %v", e.Command, e.Message, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }
