package crypto

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()
	// Fixed 32-byte key for deterministic tests.
	return hex.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
}

func TestRoundtrip(t *testing.T) {
	c, err := NewCipher(testKey(t))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	original := []byte(`{"skills":["go","sql"],"summary":"backend dev"}`)
	sealed, err := c.Seal(original)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if bytes.Equal(sealed, original) {
		t.Fatal("sealed blob should differ from plaintext")
	}

	opened, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !bytes.Equal(opened, original) {
		t.Errorf("roundtrip failed: got %q, want %q", opened, original)
	}
}

func TestDifferentCiphertexts(t *testing.T) {
	c, err := NewCipher(testKey(t))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	plaintext := []byte("same input")
	enc1, err := c.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal 1: %v", err)
	}
	enc2, err := c.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal 2: %v", err)
	}

	if bytes.Equal(enc1, enc2) {
		t.Error("two encryptions of the same plaintext should produce different ciphertexts (random nonce)")
	}

	dec1, _ := c.Open(enc1)
	dec2, _ := c.Open(enc2)
	if !bytes.Equal(dec1, dec2) {
		t.Error("both ciphertexts should decrypt to the same plaintext")
	}
}

func TestNilCipherPassthrough(t *testing.T) {
	var c *Cipher

	blob := []byte(`{"key":"value"}`)
	sealed, err := c.Seal(blob)
	if err != nil {
		t.Fatalf("nil Seal: %v", err)
	}
	if !bytes.Equal(sealed, blob) {
		t.Errorf("nil Seal should return plaintext unchanged, got %q", sealed)
	}

	opened, err := c.Open(blob)
	if err != nil {
		t.Fatalf("nil Open: %v", err)
	}
	if !bytes.Equal(opened, blob) {
		t.Errorf("nil Open should return input unchanged, got %q", opened)
	}
}

func TestEmptyKeyReturnsNil(t *testing.T) {
	c, err := NewCipher("")
	if err != nil {
		t.Fatalf("NewCipher with empty key: %v", err)
	}
	if c != nil {
		t.Error("NewCipher with empty key should return nil")
	}
}

func TestInvalidKeyLength(t *testing.T) {
	// 16-byte key (too short for AES-256).
	short := hex.EncodeToString([]byte("0123456789abcdef"))
	_, err := NewCipher(short)
	if err == nil {
		t.Error("expected error for 16-byte key")
	}
	if !strings.Contains(err.Error(), "32 bytes") {
		t.Errorf("error should mention 32 bytes, got: %v", err)
	}

	// Invalid hex.
	_, err = NewCipher("not-hex")
	if err == nil {
		t.Error("expected error for invalid hex")
	}
}

func TestOpenInvalidData(t *testing.T) {
	c, err := NewCipher(testKey(t))
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	// Too short to even hold a nonce.
	if _, err := c.Open([]byte("a")); err == nil {
		t.Error("expected error for too-short ciphertext")
	}

	// Tampered ciphertext must fail authentication.
	sealed, _ := c.Seal([]byte("hello"))
	sealed[len(sealed)-1] ^= 0x01
	if _, err := c.Open(sealed); err == nil {
		t.Error("expected error for tampered ciphertext")
	}
}
