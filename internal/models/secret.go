package models

import (
	"fmt"
	"time"
)

const (
	MinViews = 1
	MaxViews = 10
)

// ContentType is the declared content kind, echoed to viewers before
// decryption so the client can pick a renderer. It mirrors the kind tag
// inside the encrypted frame but is never verified against it — the
// server cannot look inside the ciphertext.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentMixed ContentType = "mixed"
)

func ParseContentType(s string) (ContentType, error) {
	switch ContentType(s) {
	case ContentText, ContentImage, ContentMixed:
		return ContentType(s), nil
	default:
		return "", fmt.Errorf("invalid content type: %q", s)
	}
}

// ExpirySelection is one of the fixed lifetimes a sender may choose.
type ExpirySelection string

const (
	ExpiryFiveMinutes ExpirySelection = "five-minutes"
	ExpiryOneHour     ExpirySelection = "one-hour"
	ExpiryOneDay      ExpirySelection = "one-day"
	ExpirySevenDays   ExpirySelection = "seven-days"
)

func ParseExpirySelection(s string) (ExpirySelection, error) {
	switch ExpirySelection(s) {
	case ExpiryFiveMinutes, ExpiryOneHour, ExpiryOneDay, ExpirySevenDays:
		return ExpirySelection(s), nil
	default:
		return "", fmt.Errorf("invalid expiry selection: %q", s)
	}
}

func (e ExpirySelection) Duration() time.Duration {
	switch e {
	case ExpiryFiveMinutes:
		return 5 * time.Minute
	case ExpiryOneHour:
		return time.Hour
	case ExpiryOneDay:
		return 24 * time.Hour
	case ExpirySevenDays:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// SecretRecord is the server-side copy of a ciphertext bundle. It holds
// no key material: Ciphertext, IV and Salt are opaque transport bytes
// and VerifierHash is a bcrypt hash of the client's password verifier.
type SecretRecord struct {
	ID           string
	Ciphertext   []byte
	IV           []byte
	Salt         []byte // nil when no password is set
	VerifierHash []byte // nil when no password is set
	ContentType  ContentType
	CreatedAt    time.Time
	ExpiresAt    time.Time
	MaxViews     int
	ViewCount    int
}

func (s *SecretRecord) HasPassword() bool {
	return len(s.VerifierHash) > 0
}

func (s *SecretRecord) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *SecretRecord) Exhausted() bool {
	return s.ViewCount >= s.MaxViews
}

// SecretMetadata is the non-sensitive view of a record returned before
// any view is consumed.
type SecretMetadata struct {
	HasPassword    bool
	ExpiresAt      time.Time
	RemainingViews int
	MaxViews       int
	ContentType    ContentType
}

// ViewResult is what a successful view returns: the ciphertext bundle
// plus the post-increment bookkeeping.
type ViewResult struct {
	Ciphertext     []byte
	IV             []byte
	Salt           []byte
	ContentType    ContentType
	RemainingViews int
	Destroyed      bool
}
