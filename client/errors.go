package client

import (
	"fmt"

	"github.com/pkg/errors"
)

// ValidationError rejects a call before anything is written to the server.
type ValidationError struct {
	Op          string
	DeviceIndex uint32
	Reason      string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("client: %s(%d): %s", e.Op, e.DeviceIndex, e.Reason)
}

func invalid(op string, deviceIndex uint32, format string, args ...interface{}) error {
	return &ValidationError{Op: op, DeviceIndex: deviceIndex, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err was caused by rejected input.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
