package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"autored/pkg/config"
	errs "autored/pkg/errors"
	"autored/pkg/storage"

	"github.com/gofrs/flock"
)

// CookieStore persists the session cookies between runs
type CookieStore interface {
	// Load returns the stored cookies, or nil and no error when no session
	// has been saved yet
	Load() ([]Cookie, error)

	// Save replaces the stored session
	Save(cookies []Cookie) error

	// Clear removes the stored session; clearing an empty store is not an error
	Clear() error

	// Location describes where the session lives, for display
	Location() string
}

// NewStore builds the backend selected by cfg.Backend
func NewStore(cfg config.CredentialsConfig) (CookieStore, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Path), nil
	case "keyring":
		return NewKeyringStore(), nil
	case "encrypted":
		return NewEncryptedFileStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Backend)
	}
}

// FileStore keeps the cookies as a plain JSON array. Writers are serialized
// with an advisory lock on <path>.lock and replace the file atomically.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the session file path
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Location() string {
	return f.path
}

func (f *FileStore) lock() *flock.Flock {
	return flock.New(f.path + ".lock")
}

// Load reads the session file
func (f *FileStore) Load() ([]Cookie, error) {
	if _, err := os.Stat(f.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	fl := f.lock()
	if err := fl.RLock(); err != nil {
		return nil, errs.CredentialIO("lock session file", err)
	}
	defer fl.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errs.CredentialIO("read session file", err)
	}

	cookies, err := DecodeCookies(data)
	if err != nil {
		return nil, errs.CredentialIO("parse session file", err)
	}
	return cookies, nil
}

// Save writes the session file, creating its directory if needed
func (f *FileStore) Save(cookies []Cookie) error {
	data, err := EncodeCookies(cookies)
	if err != nil {
		return errs.CredentialIO("encode session", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return errs.CredentialIO("create session directory", err)
	}

	fl := f.lock()
	if err := fl.Lock(); err != nil {
		return errs.CredentialIO("lock session file", err)
	}
	defer fl.Unlock()

	if err := storage.WriteFileAtomic(f.path, data, 0600); err != nil {
		return errs.CredentialIO("write session file", err)
	}
	return nil
}

// Clear deletes the session file
func (f *FileStore) Clear() error {
	if _, err := os.Stat(filepath.Dir(f.path)); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	fl := f.lock()
	if err := fl.Lock(); err != nil {
		return errs.CredentialIO("lock session file", err)
	}
	defer fl.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errs.CredentialIO("remove session file", err)
	}
	return nil
}

