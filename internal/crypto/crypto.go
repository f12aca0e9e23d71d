package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// Cipher encrypts raw profile blobs with AES-256-GCM before they reach the
// database. A nil *Cipher is a valid no-op cipher (encryption disabled).
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a Cipher from a hex-encoded 32-byte key. An empty key
// returns nil, which disables encryption.
func NewCipher(hexKey string) (*Cipher, error) {
	if hexKey == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding hex key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext, prepending the nonce to the returned ciphertext.
// With a nil Cipher the plaintext passes through unchanged.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	if c == nil {
		return plaintext, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal. With a nil Cipher the input passes
// through unchanged (assumed to have been stored unencrypted).
func (c *Cipher) Open(data []byte) ([]byte, error) {
	if c == nil {
		return data, nil
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	return plaintext, nil
}
