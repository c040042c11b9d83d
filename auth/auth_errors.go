package auth

import (
	"fmt"

	ierrors "github.com/dnovikov/ironio-oauth/internal/errors"
)

// ErrInvalidState is returned when the state echoed back with an
// authorization code is missing, forged, expired or for another environment.
var ErrInvalidState = ierrors.ErrInvalidState

// TokenResponseError reports a token endpoint response that could not be
// turned into a token. Code and Description carry the provider's error fields
// when it sent them.
type TokenResponseError struct {
	Message     string
	Code        string
	Description string
	StatusCode  int
}

func (e *TokenResponseError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token response (status %d): %s", e.StatusCode, e.Message)
	}
	return "token response: " + e.Message
}

func (e *TokenResponseError) Is(target error) bool {
	return target == ierrors.ErrTokenResponse
}
