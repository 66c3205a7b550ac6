package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	errs "autored/pkg/errors"
	"autored/pkg/storage"

	"github.com/gofrs/flock"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000

	// PassphraseEnv overrides the generated passphrase file
	PassphraseEnv = "AUTORED_PASSPHRASE"
)

// EncryptedFileStore keeps the session document AES-GCM encrypted on disk.
// The key is derived with PBKDF2 from AUTORED_PASSPHRASE or from a random
// passphrase generated once into .passphrase next to the store.
type EncryptedFileStore struct {
	path       string
	passphrase string
}

type encryptedFile struct {
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Version   int       `json:"version"`
	Modified  time.Time `json:"modified"`
}

// NewEncryptedFileStore creates an encrypted store at path
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errs.CredentialIO("create session directory", err)
	}

	store := &EncryptedFileStore{path: path}
	passphrase, err := store.getPassphrase()
	if err != nil {
		return nil, errs.CredentialIO("load passphrase", err)
	}
	store.passphrase = passphrase
	return store, nil
}

func (e *EncryptedFileStore) Location() string {
	return e.path + " (encrypted)"
}

func (e *EncryptedFileStore) lock() *flock.Flock {
	return flock.New(e.path + ".lock")
}

// Load decrypts the stored session
func (e *EncryptedFileStore) Load() ([]Cookie, error) {
	if _, err := os.Stat(e.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	fl := e.lock()
	if err := fl.RLock(); err != nil {
		return nil, errs.CredentialIO("lock session file", err)
	}
	defer fl.Unlock()

	content, err := os.ReadFile(e.path)
	if err != nil {
		return nil, errs.CredentialIO("read session file", err)
	}

	var file encryptedFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, errs.CredentialIO("parse session file", err)
	}
	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, errs.CredentialIO("decode salt", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return nil, errs.CredentialIO("decode payload", err)
	}

	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
	plain, err := decrypt(sealed, key)
	if err != nil {
		return nil, errs.CredentialIO("decrypt session", err)
	}

	cookies, err := DecodeCookies(plain)
	if err != nil {
		return nil, errs.CredentialIO("parse session", err)
	}
	return cookies, nil
}

// Save encrypts cookies with a fresh salt and nonce
func (e *EncryptedFileStore) Save(cookies []Cookie) error {
	plain, err := EncodeCookies(cookies)
	if err != nil {
		return errs.CredentialIO("encode session", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return errs.CredentialIO("generate salt", err)
	}
	key := pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
	sealed, err := encrypt(plain, key)
	if err != nil {
		return errs.CredentialIO("encrypt session", err)
	}

	content, err := json.MarshalIndent(encryptedFile{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(sealed),
		Version:   1,
		Modified:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return errs.CredentialIO("encode session file", err)
	}

	fl := e.lock()
	if err := fl.Lock(); err != nil {
		return errs.CredentialIO("lock session file", err)
	}
	defer fl.Unlock()

	if err := storage.WriteFileAtomic(e.path, content, 0600); err != nil {
		return errs.CredentialIO("write session file", err)
	}
	return nil
}

// Clear deletes the encrypted file; the passphrase file is kept
func (e *EncryptedFileStore) Clear() error {
	if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errs.CredentialIO("remove session file", err)
	}
	return nil
}

func (e *EncryptedFileStore) getPassphrase() (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}

	passphraseFile := filepath.Join(filepath.Dir(e.path), ".passphrase")
	if content, err := os.ReadFile(passphraseFile); err == nil && len(content) > 0 {
		return strings.TrimSpace(string(content)), nil
	}

	passphrase, err := generatePassphrase()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(passphraseFile, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

func generatePassphrase() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// encrypt seals plaintext with AES-GCM, prefixing the nonce
func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
