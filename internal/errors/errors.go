package errors

import (
	"errors"
	"fmt"
)

// Error classes surfaced by the worker. Typed errors in the domain packages
// match these with errors.Is so callers can branch on the class alone.
var (
	// Configuration errors
	ErrConfig = errors.New("configuration error")

	// Payload errors
	ErrParse = errors.New("payload parse error")

	// Token errors
	ErrTokenResponse = errors.New("token response error")
	ErrMissingToken  = errors.New("missing access token")
	ErrInvalidState  = errors.New("invalid state")

	// Storage errors
	ErrNotFound = errors.New("not found")

	// General errors
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
