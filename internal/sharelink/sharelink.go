// Package sharelink splits an encryption bundle into the fields sent to
// the server and the key fragment embedded in the share URL. The master
// key only ever appears in the URL fragment, which browsers do not
// transmit to servers.
package sharelink

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"veil.share/internal/keys"
	"veil.share/internal/models"
)

var (
	ErrInvalidKeyFragment = errors.New("sharelink: invalid key fragment")
	ErrInvalidShareURL    = errors.New("sharelink: invalid share url")
)

// Bundle is the full client-side result of encrypting a payload.
type Bundle struct {
	MasterKey        []byte
	IV               []byte
	Salt             []byte // nil when no password is set
	Ciphertext       []byte
	PasswordVerifier string // empty when no password is set
	ContentType      models.ContentType
}

// ServerFields is the subset of a bundle that may be sent to the
// server: everything except the master key.
type ServerFields struct {
	Ciphertext       string `json:"ciphertext"`
	IV               string `json:"iv"`
	Salt             string `json:"salt,omitempty"`
	PasswordVerifier string `json:"password_verifier,omitempty"`
	ContentType      string `json:"content_type"`
}

// Encode splits bundle into the server-bound fields and the base64url
// key fragment (padding stripped).
func Encode(b Bundle) (ServerFields, string) {
	fields := ServerFields{
		Ciphertext:       base64.StdEncoding.EncodeToString(b.Ciphertext),
		IV:               base64.StdEncoding.EncodeToString(b.IV),
		PasswordVerifier: b.PasswordVerifier,
		ContentType:      string(b.ContentType),
	}
	if len(b.Salt) > 0 {
		fields.Salt = base64.StdEncoding.EncodeToString(b.Salt)
	}
	return fields, base64.RawURLEncoding.EncodeToString(b.MasterKey)
}

// Decode reassembles a bundle from server fields and the key fragment.
func Decode(fields ServerFields, keyFragment string) (Bundle, error) {
	masterKey, err := base64.RawURLEncoding.DecodeString(keyFragment)
	if err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrInvalidKeyFragment, err)
	}
	if len(masterKey) != keys.KeySize {
		return Bundle{}, fmt.Errorf("%w: key is %d bytes, want %d", ErrInvalidKeyFragment, len(masterKey), keys.KeySize)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(fields.Ciphertext)
	if err != nil {
		return Bundle{}, fmt.Errorf("decoding ciphertext: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(fields.IV)
	if err != nil {
		return Bundle{}, fmt.Errorf("decoding iv: %w", err)
	}

	var salt []byte
	if fields.Salt != "" {
		salt, err = base64.StdEncoding.DecodeString(fields.Salt)
		if err != nil {
			return Bundle{}, fmt.Errorf("decoding salt: %w", err)
		}
	}

	contentType, err := models.ParseContentType(fields.ContentType)
	if err != nil {
		return Bundle{}, err
	}

	return Bundle{
		MasterKey:        masterKey,
		IV:               iv,
		Salt:             salt,
		Ciphertext:       ciphertext,
		PasswordVerifier: fields.PasswordVerifier,
		ContentType:      contentType,
	}, nil
}

// BuildURL composes the share link: baseURL/s/{id}#keyFragment.
func BuildURL(baseURL, id, keyFragment string) string {
	return strings.TrimRight(baseURL, "/") + "/s/" + id + "#" + keyFragment
}

// ParseURL extracts the secret id and key fragment from a share link.
func ParseURL(shareURL string) (id, keyFragment string, err error) {
	u, err := url.Parse(shareURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidShareURL, err)
	}

	id = strings.TrimPrefix(u.Path, "/s/")
	if id == "" || id == u.Path || strings.Contains(id, "/") {
		return "", "", fmt.Errorf("%w: missing secret id", ErrInvalidShareURL)
	}
	if u.Fragment == "" {
		return "", "", fmt.Errorf("%w: missing key fragment", ErrInvalidShareURL)
	}
	return id, u.Fragment, nil
}
