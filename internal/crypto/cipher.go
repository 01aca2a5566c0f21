// Package crypto wraps AES-256-GCM for the sharing protocol. Unlike the
// usual nonce-prepended blob layout, the IV travels as a separate wire
// field, so Seal and Open take it explicitly.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"veil.share/internal/keys"
)

// ErrAuthenticationFailed is returned whenever Open cannot verify the
// GCM tag. Wrong key, wrong IV and tampered ciphertext are deliberately
// indistinguishable.
var ErrAuthenticationFailed = errors.New("crypto: authentication failed")

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != keys.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keys.KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher creation failed: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("GCM creation failed: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext under key with the given 12-byte IV and
// returns ciphertext ‖ tag. The caller must supply a fresh random IV
// for every call; see keys.NewIV.
func Seal(key, iv, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != gcm.NonceSize() {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", gcm.NonceSize(), len(iv))
	}
	return gcm.Seal(nil, iv, plaintext, nil), nil
}

// Open decrypts ciphertext ‖ tag produced by Seal. Any verification
// failure surfaces as ErrAuthenticationFailed with no further detail.
func Open(key, iv, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != gcm.NonceSize() {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", gcm.NonceSize(), len(iv))
	}

	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
