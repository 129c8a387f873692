package conn

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ngerakines/rgbops/wire"
)

var (
	// ErrTimeout is returned when a request's deadline passes first.
	ErrTimeout = errors.New("conn: request timed out")
	// ErrDisconnected is returned once the session has failed.
	ErrDisconnected = errors.New("conn: disconnected")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("conn: closed")
	// ErrUnexpectedReply means a reply arrived for something other than
	// the request being waited on. The stream cannot be trusted after it.
	ErrUnexpectedReply = errors.New("conn: unexpected reply")
)

// TransportError is an I/O failure on the underlying connection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("conn: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RequestError reports why a single call did not complete. Err is one of
// ErrTimeout, ErrDisconnected, ErrClosed or context.Canceled; Cause, when
// set, is what ended the session or the context.
type RequestError struct {
	Kind        wire.Kind
	DeviceIndex uint32
	Err         error
	Cause       error
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("conn: %v(%d): %v", e.Kind, e.DeviceIndex, e.Err)
	if e.Cause != nil && e.Cause != e.Err {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RequestError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}
