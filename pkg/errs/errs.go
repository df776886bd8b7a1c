package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates malformed input
	ErrValidation = errors.New("validation error")

	// ErrAuthorization indicates the caller lacks the required role
	ErrAuthorization = errors.New("authorization error")

	// ErrState indicates the operation is invalid for the current lifecycle state
	ErrState = errors.New("state error")

	// ErrResource indicates an insufficient balance, stake or cap
	ErrResource = errors.New("resource error")

	// ErrTransfer indicates an outbound value movement failed
	ErrTransfer = errors.New("transfer failure")
)

// Validationf wraps a reason into a ValidationError
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Authorizationf wraps a reason into an AuthorizationError
func Authorizationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

// Statef wraps a reason into a StateError
func Statef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrState, fmt.Sprintf(format, args...))
}

// Resourcef wraps a reason into a ResourceError
func Resourcef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrResource, fmt.Sprintf(format, args...))
}

// Transferf wraps a reason into a TransferFailure
func Transferf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransfer, fmt.Sprintf(format, args...))
}
