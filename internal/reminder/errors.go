package reminder

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for a non-positive interval.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTransportUnavailable means no device or characteristic is attached.
	ErrTransportUnavailable = errors.New("transport unavailable")
	// ErrTransportError means the transport rejected or timed out a write.
	ErrTransportError = errors.New("transport error")
)

// TransportError wraps a failed write of Command to the bottle.
type TransportError struct {
	Command Command
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send %s: %v", e.Command, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrTransportError
}

// IsTransport reports whether err came from the command sink rather than
// from argument validation.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransportUnavailable) || errors.Is(err, ErrTransportError)
}
