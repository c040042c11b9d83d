package config

import (
	"path/filepath"

	ierrors "github.com/dnovikov/ironio-oauth/internal/errors"
	"github.com/dnovikov/ironio-oauth/token"
)

// StoreKind selects the token store backend.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreFile   StoreKind = "file"
	StoreSQLite StoreKind = "sqlite"
)

type Store struct {
	Kind        StoreKind         `env:"IRONIO_OAUTH_STORE" envDefault:"file"`
	Path        string            `env:"IRONIO_OAUTH_STORE_PATH"`
	WritePolicy token.WritePolicy `env:"IRONIO_OAUTH_WRITE_POLICY" envDefault:"last-write-wins"`

	// dataFolder is filled in from EnvVars when the path is defaulted.
	dataFolder string
}

var _ StoreConfig = Store{}

func (s Store) GetStoreKind() StoreKind {
	return s.Kind
}

func (s Store) GetWritePolicy() token.WritePolicy {
	return s.WritePolicy
}

// GetStorePath returns the configured path or a default under the data folder:
// a directory for the file store, a database file for sqlite.
func (s Store) GetStorePath() string {
	if s.Path != "" {
		return s.Path
	}
	folder := s.dataFolder
	if folder == "" {
		folder = "./data"
	}
	switch s.Kind {
	case StoreSQLite:
		return filepath.Join(folder, "tokens.db")
	case StoreFile:
		return filepath.Join(folder, "tokens")
	}
	return ""
}

func (s Store) validate() error {
	switch s.Kind {
	case StoreMemory, StoreFile, StoreSQLite:
		return nil
	}
	return ierrors.Wrapf(ierrors.ErrUnsupported, "token store %q", s.Kind)
}
