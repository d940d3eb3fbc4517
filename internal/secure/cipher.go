package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DecryptionFailedMarker is returned in place of plaintext when a
// stored record cannot be authenticated (secret rotation, corruption).
// History stays renderable; one bad row never blocks the rest.
const DecryptionFailedMarker = "[ERROR: DECRYPTION FAILED]"

// Cipher encrypts message payloads at rest with AES-256-GCM. The key
// is derived once at process start and never mutated afterwards, so a
// single Cipher is safe for unsynchronized concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the data-at-rest key from the long-lived secret
// via HKDF-SHA256. No random salt: the derivation must be stable
// across restarts for stored ciphertext to remain readable.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("cipher: secret is required")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("nexus-data-at-rest-v1"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("cipher: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext as nonce||ciphertext. The empty string maps
// to a nil sentinel meaning "nothing stored".
func (c *Cipher) Encrypt(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cipher: nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt reverses Encrypt. The empty sentinel decrypts to "". Any
// authentication failure yields DecryptionFailedMarker, never an error.
func (c *Cipher) Decrypt(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return DecryptionFailedMarker
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return DecryptionFailedMarker
	}
	return string(plaintext)
}
