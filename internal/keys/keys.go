// Package keys generates and derives all key material for the sharing
// protocol. The master key never reaches the server; the password, when
// set, blinds the master key via XOR with a PBKDF2-derived key so that
// neither factor alone can decrypt a bundle.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KeySize  = 32
	IVSize   = 12 // GCM standard nonce size
	SaltSize = 16

	idLength         = 12
	pbkdf2Iterations = 100000
)

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	return b, nil
}

// NewMasterKey returns 32 fresh random bytes, the sole secret needed to
// decrypt an unprotected bundle.
func NewMasterKey() ([]byte, error) { return randomBytes(KeySize) }

// NewIV returns a fresh 12-byte GCM nonce. A new one must be generated
// for every encryption; reuse under the same key breaks confidentiality.
func NewIV() ([]byte, error) { return randomBytes(IVSize) }

// NewSalt returns a fresh 16-byte PBKDF2 salt.
func NewSalt() ([]byte, error) { return randomBytes(SaltSize) }

// GenerateID returns a URL-safe random identifier for a stored secret.
func GenerateID() string {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// DeriveFromPassword stretches the UTF-8 password bytes into a 256-bit
// key with PBKDF2-HMAC-SHA256 over the given salt. Deterministic for a
// (password, salt) pair; used only to blind the master key.
func DeriveFromPassword(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, KeySize, sha256.New)
}

// Combine XOR-blinds two 32-byte keys. Combine(Combine(k, d), d) == k.
func Combine(masterKey, derivedKey []byte) ([]byte, error) {
	if len(masterKey) != KeySize || len(derivedKey) != KeySize {
		return nil, fmt.Errorf("combine requires two %d-byte keys, got %d and %d", KeySize, len(masterKey), len(derivedKey))
	}
	out := make([]byte, KeySize)
	for i := range out {
		out[i] = masterKey[i] ^ derivedKey[i]
	}
	return out, nil
}

// VerifierHash computes the password verifier sent to the server:
// base64(SHA-256(password)). It gates access only and is unrelated to
// the key-derivation path; the server re-hashes it with a slow hash
// before persisting.
func VerifierHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}
