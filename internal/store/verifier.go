package store

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashVerifier applies bcrypt to the client-supplied password verifier
// so that a dump of stored records does not directly disclose the
// verifier. Returns nil for an empty verifier (no password gate).
func HashVerifier(verifier string) ([]byte, error) {
	if verifier == "" {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(verifier), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing verifier: %w", err)
	}
	return hash, nil
}

// checkVerifier enforces the password gate of a record. hash is the
// stored bcrypt hash (nil means no gate).
func checkVerifier(hash []byte, verifier string) error {
	if len(hash) == 0 {
		return nil
	}
	if verifier == "" {
		return ErrPasswordRequired
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(verifier)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("comparing verifier: %w", err)
	}
	return nil
}
