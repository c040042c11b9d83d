package token

import ierrors "github.com/dnovikov/ironio-oauth/internal/errors"

// ErrNotFound is returned by Get when no token is stored for a service.
var ErrNotFound = ierrors.ErrNotFound

// Store persists one access token per service identifier. It is the only
// state that survives between worker invocations.
type Store interface {
	Has(serviceID string) (bool, error)
	Get(serviceID string) (*Token, error)
	Put(serviceID string, tok *Token) error
	// PutIfAbsent stores tok only when nothing is stored yet and reports
	// whether it did. The check and write are atomic.
	PutIfAbsent(serviceID string, tok *Token) (bool, error)
	Delete(serviceID string) error
}

// Save writes tok according to policy and reports whether it was stored.
func Save(s Store, policy WritePolicy, serviceID string, tok *Token) (bool, error) {
	if policy == FirstWriteWins {
		return s.PutIfAbsent(serviceID, tok)
	}
	if err := s.Put(serviceID, tok); err != nil {
		return false, err
	}
	return true, nil
}
