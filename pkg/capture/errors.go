package capture

import (
	"errors"
	"fmt"
)

// Error kinds reported by the controller
var (
	ErrPermission   = errors.New("camera permission error")
	ErrCapture      = errors.New("capture failed")
	ErrTransform    = errors.New("image transform failed")
	ErrGeometry     = errors.New("invalid guide geometry")
	ErrBusy         = errors.New("capture already in progress")
	ErrInvalidState = errors.New("operation not allowed in current state")
)

// User-facing permission messages
const (
	PermissionRequiredMessage = "Camera permission is required."
	PermissionFallbackMessage = "Unable to load camera."
)

// Error carries a kind sentinel, a message and the underlying cause
type Error struct {
	Kind    error
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error kind
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func newError(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func invalidState(op string, s State) *Error {
	return newError(ErrInvalidState, fmt.Sprintf("%s not allowed in state %s", op, s), nil)
}
