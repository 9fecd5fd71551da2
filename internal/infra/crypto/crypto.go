// Package crypto provides encryption of secrets stored in configuration files.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

const (
	// NonceSize is the size of the nonce for AES-GCM (12 bytes).
	NonceSize = 12
	// KeySize is the size of the AES-256 key (32 bytes).
	KeySize = 32
	// SecretPrefix marks an encrypted configuration value.
	SecretPrefix = "enc:"
	// KeyEnv names the environment variable holding the hex key.
	KeyEnv = "TFS_CHECKOUT_KEY"
)

var (
	// ErrInvalidKey is returned when the encryption key is invalid.
	ErrInvalidKey = errors.New("invalid encryption key: must be 32 bytes (64 hex characters)")
	// ErrDecryptionFailed is returned when decryption fails.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or key")
	// ErrCiphertextTooShort is returned when the ciphertext is too short.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// Encryptor handles AES-256-GCM encryption.
type Encryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor creates a new Encryptor with the given hex-encoded key.
// The key must be 64 hex characters (32 bytes).
func NewEncryptor(hexKey string) (*Encryptor, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil || len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Encryptor{gcm: gcm}, nil
}

// GenerateKey returns a new random hex-encoded key.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt encrypts plaintext using AES-256-GCM with a random nonce.
// Returns: nonce (12 bytes) + ciphertext + auth tag
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return e.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts ciphertext using AES-256-GCM.
// Expects: nonce (12 bytes) + ciphertext + auth tag
func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce := ciphertext[:NonceSize]
	encrypted := ciphertext[NonceSize:]

	plaintext, err := e.gcm.Open(nil, nonce, encrypted, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptSecret returns the "enc:<hex>" form of a secret.
func (e *Encryptor) EncryptSecret(secret string) (string, error) {
	ciphertext, err := e.Encrypt([]byte(secret))
	if err != nil {
		return "", err
	}
	return SecretPrefix + hex.EncodeToString(ciphertext), nil
}

// DecryptSecret reverses EncryptSecret. Values without the prefix are
// returned unchanged.
func (e *Encryptor) DecryptSecret(value string) (string, error) {
	if !IsSecret(value) {
		return value, nil
	}
	ciphertext, err := hex.DecodeString(strings.TrimPrefix(value, SecretPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: not hex encoded", domain.ErrInvalidSecret)
	}
	plaintext, err := e.Decrypt(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidSecret, err)
	}
	return string(plaintext), nil
}

// IsSecret reports whether value is in "enc:<hex>" form.
func IsSecret(value string) bool {
	return strings.HasPrefix(value, SecretPrefix)
}
