package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize     = 16     // Salt size in bytes
	KeySize      = 32     // AES-256 key size
	NonceSize    = 12     // GCM nonce size
	TagSize      = 16     // GCM authentication tag size
	DefaultIters = 210000 // PBKDF2 iterations (OWASP minimum)
)

var (
	ErrAuthFailed = errors.New("authentication failed")

	// Malformed input is reported as an authentication failure so callers
	// cannot tell it apart from a wrong key.
	ErrInvalidCiphertext = fmt.Errorf("%w: invalid ciphertext", ErrAuthFailed)
	ErrInvalidNonce      = fmt.Errorf("%w: invalid nonce", ErrAuthFailed)
)

// SaltStore is the persistence the salt lives in. GetSalt returns nil, nil
// when no salt has been stored yet.
type SaltStore interface {
	GetSalt() ([]byte, error)
	SetSalt(salt []byte) error
}

// DeriveKey derives a 256-bit encryption key from a passphrase and salt
// using PBKDF2-HMAC-SHA256.
func DeriveKey(passphrase, salt []byte) []byte {
	return pbkdf2.Key(passphrase, salt, DefaultIters, KeySize, sha256.New)
}

// NewSalt generates a fresh random salt
func NewSalt() ([]byte, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GetOrCreateSalt returns the stored salt, creating and persisting one on
// first use. Every later call returns the same bytes.
func GetOrCreateSalt(store SaltStore) ([]byte, error) {
	salt, err := store.GetSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}
	if salt != nil {
		return salt, nil
	}

	salt, err = NewSalt()
	if err != nil {
		return nil, err
	}
	if err := store.SetSalt(salt); err != nil {
		return nil, fmt.Errorf("failed to store salt: %w", err)
	}
	return salt, nil
}

// Encryptor provides authenticated encryption
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new encryptor with the given key.
// The encryptor keeps its own copy of the key.
func NewEncryptor(key []byte) *Encryptor {
	return &Encryptor{
		key: append([]byte(nil), key...),
	}
}

func (e *Encryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext using AES-256-GCM under a fresh random nonce.
// The authentication tag is appended to the ciphertext.
func (e *Encryptor) Seal(plaintext []byte) (ciphertext, nonce []byte, err error) {
	gcm, err := e.gcm()
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open verifies and decrypts ciphertext produced by Seal
func (e *Encryptor) Open(ciphertext, nonce []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonce
	}
	if len(ciphertext) < TagSize {
		return nil, ErrInvalidCiphertext
	}

	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

// Destroy clears the encryptor's key from memory
func (e *Encryptor) Destroy() {
	ClearBytes(e.key)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
