package auth

import (
	"errors"
	"fmt"

	errs "autored/pkg/errors"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "autored"
	keyringKey     = "xhs_cookies"
)

// KeyringStore keeps the session document in the system keychain
type KeyringStore struct {
	service string
	key     string
}

// NewKeyringStore creates a keychain-backed store
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService, key: keyringKey}
}

func (k *KeyringStore) Location() string {
	return fmt.Sprintf("keyring %s/%s", k.service, k.key)
}

// Load reads the session from the keychain
func (k *KeyringStore) Load() ([]Cookie, error) {
	data, err := keyring.Get(k.service, k.key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, errs.CredentialIO("read keyring", err)
	}

	cookies, err := DecodeCookies([]byte(data))
	if err != nil {
		return nil, errs.CredentialIO("parse keyring entry", err)
	}
	return cookies, nil
}

// Save writes the session to the keychain
func (k *KeyringStore) Save(cookies []Cookie) error {
	data, err := EncodeCookies(cookies)
	if err != nil {
		return errs.CredentialIO("encode session", err)
	}
	if err := keyring.Set(k.service, k.key, string(data)); err != nil {
		return errs.CredentialIO("write keyring", err)
	}
	return nil
}

// Clear removes the keychain entry
func (k *KeyringStore) Clear() error {
	if err := keyring.Delete(k.service, k.key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errs.CredentialIO("delete keyring entry", err)
	}
	return nil
}
