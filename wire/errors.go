package wire

import (
	"errors"
	"fmt"
)

// Protocol errors. Any of them surfacing from the read loop means the
// stream can no longer be trusted.
var (
	ErrBadMagic        = errors.New("wire: bad magic")
	ErrTruncated       = errors.New("wire: truncated payload")
	ErrInvalidEncoding = errors.New("wire: invalid encoding")
	ErrUnsupportedKind = errors.New("wire: message kind not supported")
	ErrTooLarge        = errors.New("wire: payload exceeds limit")
	ErrInvariant       = errors.New("wire: invariant violated")
)

// ProtocolError describes a failure to encode or decode a message.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Errorf builds a ProtocolError wrapping err with extra detail.
func Errorf(op string, err error, format string, args ...interface{}) error {
	return &ProtocolError{Op: op, Err: fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))}
}

// IsProtocolError reports whether err carries a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
