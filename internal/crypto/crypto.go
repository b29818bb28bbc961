// Package crypto seals profile secrets (Attio API keys) at rest using
// AES-256-GCM with a PBKDF2-derived key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize   = 32
	nonceSize = 12
	saltSize  = 32
	// iterations for PBKDF2 key derivation
	iterations = 100000
)

// Sealer encrypts and decrypts profile payloads with a passphrase.
// Every Seal derives a fresh key from a random salt, so the same
// plaintext never produces the same blob twice.
type Sealer struct {
	passphrase []byte
}

// NewSealer creates a Sealer for the given passphrase.
func NewSealer(passphrase string) *Sealer {
	return &Sealer{passphrase: []byte(passphrase)}
}

// Seal encrypts plaintext and returns a base64 blob of
// salt || nonce || ciphertext.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Open decrypts a blob produced by Seal. A wrong passphrase or a
// tampered blob fails GCM authentication.
func (s *Sealer) Open(encoded string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode blob: %w", err)
	}
	if len(blob) < saltSize+nonceSize {
		return nil, fmt.Errorf("blob too short: %d bytes", len(blob))
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

func (s *Sealer) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(s.passphrase, salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// GeneratePassphrase returns a random passphrase of the given length.
func GeneratePassphrase(length int) (string, error) {
	if length < 16 {
		return "", fmt.Errorf("passphrase length must be at least 16 characters")
	}
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw)[:length], nil
}

// ValidatePassphrase enforces the minimum passphrase length.
func ValidatePassphrase(passphrase string) error {
	if len(passphrase) < 12 {
		return fmt.Errorf("passphrase must be at least 12 characters long")
	}
	return nil
}

// Zero overwrites sensitive byte slices in place.
func Zero(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
