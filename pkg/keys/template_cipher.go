// Package keys provides encryption for biometric templates at rest.
// Templates are sensitive personal data; the gateway never stores one in
// plaintext. Each modality encrypts under its own subkey derived from a
// single master key, so rotating or revoking one modality's material does
// not require touching the others.
package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/openjms/biometric-gateway/pkg/biometric"
)

// TemplateCipher encrypts and decrypts biometric templates using
// AES-256-GCM with per-modality subkeys derived via HKDF-SHA256.
type TemplateCipher struct {
	masterKey []byte
}

// NewTemplateCipher creates a cipher from a 32-byte master key.
func NewTemplateCipher(masterKey []byte) (*TemplateCipher, error) {
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes (AES-256), got %d", len(masterKey))
	}
	key := make([]byte, 32)
	copy(key, masterKey)
	return &TemplateCipher{masterKey: key}, nil
}

// Encrypt encrypts a template for the given modality. The result is
// base64-encoded and contains: nonce || ciphertext || tag.
func (c *TemplateCipher) Encrypt(modality biometric.Modality, template []byte) (string, error) {
	if len(template) == 0 {
		return "", fmt.Errorf("template is empty")
	}

	gcm, err := c.gcmFor(modality)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, template, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a template previously encrypted for the given modality.
// Decrypting with the wrong modality fails authentication.
func (c *TemplateCipher) Decrypt(modality biometric.Modality, encrypted string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	gcm, err := c.gcmFor(modality)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// gcmFor builds a GCM instance keyed with the modality's derived subkey.
func (c *TemplateCipher) gcmFor(modality biometric.Modality) (cipher.AEAD, error) {
	info := []byte("template-key-" + string(modality))
	hkdfReader := hkdf.New(sha256.New, c.masterKey, nil, info)

	subkey := make([]byte, 32)
	if _, err := io.ReadFull(hkdfReader, subkey); err != nil {
		return nil, fmt.Errorf("failed to derive subkey: %w", err)
	}

	block, err := aes.NewCipher(subkey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// GenerateMasterKey generates a new random 32-byte master key.
// This should be stored securely (environment variable, secrets manager, etc.)
func GenerateMasterKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	return key, nil
}

// MasterKeyFromBase64 decodes a base64-encoded master key
func MasterKeyFromBase64(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// MasterKeyToBase64 encodes a master key as base64 for storage
func MasterKeyToBase64(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}
