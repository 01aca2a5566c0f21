// Package store owns the lifetime of secret records. A record is
// reachable only while it is neither expired nor exhausted; the last
// permitted view purges it in the same atomic step that returns it.
package store

import (
	"context"
	"errors"

	"veil.share/internal/models"
)

var (
	// ErrUnavailable covers not-found, expired and exhausted alike.
	// Callers must not be able to tell which one happened.
	ErrUnavailable = errors.New("secret unavailable")

	ErrPasswordRequired = errors.New("password verifier required")
	ErrInvalidPassword  = errors.New("invalid password verifier")
)

type Store interface {
	// Save persists a new record. The record's VerifierHash must
	// already be the slow hash produced by HashVerifier.
	Save(ctx context.Context, record *models.SecretRecord) error

	// PeekMetadata reports the non-sensitive state of a record
	// without consuming a view. Expired or exhausted records are
	// lazily purged and reported as unavailable.
	PeekMetadata(ctx context.Context, id string) (*models.SecretMetadata, error)

	// ConsumeView checks availability and the password gate, then
	// increments the view count and purges the record if that view
	// was the last one — all as a single atomic unit with respect to
	// concurrent calls on the same id.
	ConsumeView(ctx context.Context, id, verifier string) (*models.ViewResult, error)

	// Delete removes a record unconditionally.
	Delete(ctx context.Context, id string) error

	Close() error
}
