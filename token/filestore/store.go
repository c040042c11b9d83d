// Package filestore keeps tokens as JSON files in a directory. Writers from
// different processes are serialised with an advisory file lock so concurrent
// worker invocations for one service never interleave a read-check-write.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dnovikov/ironio-oauth/token"
	"github.com/gofrs/flock"
)

const (
	lockFileName = ".lock"
	filePrefix   = "token-"
	fileSuffix   = ".json"

	// DefaultLockTimeout is how long an operation waits for the directory lock.
	DefaultLockTimeout = 5 * time.Second

	lockRetryDelay = 10 * time.Millisecond
)

var _ token.Store = (*Store)(nil)

// Store is a directory-backed token store.
type Store struct {
	dir         string
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout overrides DefaultLockTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

// New creates the directory if needed and returns a store rooted at dir.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("token directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create token directory: %w", err)
	}
	s := &Store{dir: dir, lockTimeout: DefaultLockTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(serviceID string) string {
	return filepath.Join(s.dir, filePrefix+url.QueryEscape(serviceID)+fileSuffix)
}

func (s *Store) Has(serviceID string) (bool, error) {
	unlock, err := s.lock(false)
	if err != nil {
		return false, err
	}
	defer unlock()

	_, err = os.Stat(s.path(serviceID))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat token file: %w", err)
}

func (s *Store) Get(serviceID string) (*token.Token, error) {
	unlock, err := s.lock(false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.read(serviceID)
}

func (s *Store) Put(serviceID string, tok *token.Token) error {
	unlock, err := s.lock(true)
	if err != nil {
		return err
	}
	defer unlock()
	return s.write(serviceID, tok)
}

func (s *Store) PutIfAbsent(serviceID string, tok *token.Token) (bool, error) {
	unlock, err := s.lock(true)
	if err != nil {
		return false, err
	}
	defer unlock()

	if _, err := os.Stat(s.path(serviceID)); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat token file: %w", err)
	}
	if err := s.write(serviceID, tok); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Delete(serviceID string) error {
	unlock, err := s.lock(true)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(s.path(serviceID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (s *Store) read(serviceID string) (*token.Token, error) {
	data, err := os.ReadFile(s.path(serviceID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, token.ErrNotFound
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	return token.Unmarshal(data)
}

// write replaces the token file atomically via a temp file and rename.
func (s *Store) write(serviceID string, tok *token.Token) error {
	if tok == nil {
		return errors.New("token cannot be nil")
	}
	data, err := tok.Marshal()
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(serviceID)); err != nil {
		return fmt.Errorf("rename token file: %w", err)
	}
	return nil
}

// lock takes the directory lock, exclusive for writers and shared for readers.
// It fails closed: no operation runs without the lock.
func (s *Store) lock(exclusive bool) (func(), error) {
	fl := flock.New(filepath.Join(s.dir, lockFileName))

	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = fl.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = fl.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("lock token directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock token directory: timed out after %s", s.lockTimeout)
	}
	return func() { _ = fl.Unlock() }, nil
}
