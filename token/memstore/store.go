package memstore

import (
	"errors"
	"sync"

	"github.com/dnovikov/ironio-oauth/token"
)

var _ token.Store = (*InMemoryStore)(nil)

// InMemoryStore is a thread-safe in-memory token store. Tokens do not outlive
// the process.
type InMemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]*token.Token

	// Calls counts store operations by name, for tests asserting side effects.
	calls map[string]int
}

// New creates an empty in-memory token store.
func New() *InMemoryStore {
	return &InMemoryStore{
		tokens: make(map[string]*token.Token),
		calls:  make(map[string]int),
	}
}

func (s *InMemoryStore) Has(serviceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["has"]++
	_, ok := s.tokens[serviceID]
	return ok, nil
}

func (s *InMemoryStore) Get(serviceID string) (*token.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["get"]++
	tok, ok := s.tokens[serviceID]
	if !ok {
		return nil, token.ErrNotFound
	}
	// Return a copy to prevent external modifications
	return tok.Clone(), nil
}

func (s *InMemoryStore) Put(serviceID string, tok *token.Token) error {
	if tok == nil {
		return errors.New("token cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["put"]++
	s.tokens[serviceID] = tok.Clone()
	return nil
}

func (s *InMemoryStore) PutIfAbsent(serviceID string, tok *token.Token) (bool, error) {
	if tok == nil {
		return false, errors.New("token cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["put"]++
	if _, ok := s.tokens[serviceID]; ok {
		return false, nil
	}
	s.tokens[serviceID] = tok.Clone()
	return true, nil
}

func (s *InMemoryStore) Delete(serviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["delete"]++
	delete(s.tokens, serviceID)
	return nil
}

// Writes returns the number of Put and PutIfAbsent calls.
func (s *InMemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls["put"]
}
