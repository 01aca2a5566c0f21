// Package client implements the sender and recipient sides of the
// sharing protocol: framing, key material, encryption and the HTTP
// calls. All cryptography happens here; the server only ever receives
// ciphertext and the password verifier.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"veil.share/internal/api"
	"veil.share/internal/crypto"
	"veil.share/internal/keys"
	"veil.share/internal/models"
	"veil.share/internal/payload"
	"veil.share/internal/sharelink"
)

const MaxFileSize = 2 * 1024 * 1024 // 2MB

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var (
	ErrSecretUnavailable = errors.New("client: secret unavailable")
	ErrPasswordRequired  = errors.New("client: password required")
	ErrInvalidPassword   = errors.New("client: invalid password")
	ErrRateLimited       = errors.New("client: rate limited")
)

type Client struct {
	http    *resty.Client
	baseURL string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	baseURL = strings.TrimRight(baseURL, "/")

	cli := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &Client{http: cli, baseURL: baseURL}
}

// Secret is what a sender wants to share: text, an image, or both.
type Secret struct {
	Text     string
	FileName string
	MimeType string
	FileData []byte
	Password string
	Expiry   models.ExpirySelection
	MaxViews int
}

type CreateResult struct {
	ID        string
	ShareURL  string
	ExpiresAt time.Time
}

// Revealed is the decrypted result of consuming one view.
type Revealed struct {
	Metadata       payload.Metadata
	Text           string
	Content        []byte
	ContentType    models.ContentType
	RemainingViews int
	Destroyed      bool
}

// Create encrypts the secret locally and publishes the ciphertext
// bundle. The returned share URL carries the master key in its fragment
// and must be delivered to the recipient out-of-band.
func (c *Client) Create(ctx context.Context, secret Secret) (*CreateResult, error) {
	meta, content, contentType, err := buildPayload(secret)
	if err != nil {
		return nil, err
	}

	framed, err := payload.Frame(meta, content)
	if err != nil {
		return nil, err
	}

	masterKey, err := keys.NewMasterKey()
	if err != nil {
		return nil, err
	}
	iv, err := keys.NewIV()
	if err != nil {
		return nil, err
	}

	effectiveKey := masterKey
	var salt []byte
	var verifier string
	if secret.Password != "" {
		salt, err = keys.NewSalt()
		if err != nil {
			return nil, err
		}
		derived := keys.DeriveFromPassword(secret.Password, salt)
		effectiveKey, err = keys.Combine(masterKey, derived)
		if err != nil {
			return nil, err
		}
		verifier = keys.VerifierHash(secret.Password)
	}

	ciphertext, err := crypto.Seal(effectiveKey, iv, framed)
	if err != nil {
		return nil, err
	}

	fields, keyFragment := sharelink.Encode(sharelink.Bundle{
		MasterKey:        masterKey,
		IV:               iv,
		Salt:             salt,
		Ciphertext:       ciphertext,
		PasswordVerifier: verifier,
		ContentType:      contentType,
	})

	var created api.CreateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(api.CreateRequest{
			Ciphertext:       fields.Ciphertext,
			IV:               fields.IV,
			Salt:             fields.Salt,
			PasswordVerifier: fields.PasswordVerifier,
			ExpirySelection:  string(secret.Expiry),
			MaxViews:         secret.MaxViews,
			ContentType:      fields.ContentType,
		}).
		SetResult(&created).
		Post("/api/secrets")
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}

	return &CreateResult{
		ID:        created.ID,
		ShareURL:  sharelink.BuildURL(c.baseURL, created.ID, keyFragment),
		ExpiresAt: created.ExpiresAt,
	}, nil
}

// Metadata fetches the non-sensitive state of a secret without
// consuming a view.
func (c *Client) Metadata(ctx context.Context, id string) (*api.MetadataResponse, error) {
	var meta api.MetadataResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&meta).
		Get("/api/secrets/" + id + "/metadata")
	if err != nil {
		return nil, fmt.Errorf("metadata request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Reveal consumes one view of the secret behind shareURL and decrypts
// it locally. password must be supplied when the sender set one.
func (c *Client) Reveal(ctx context.Context, shareURL, password string) (*Revealed, error) {
	id, keyFragment, err := sharelink.ParseURL(shareURL)
	if err != nil {
		return nil, err
	}

	meta, err := c.Metadata(ctx, id)
	if err != nil {
		return nil, err
	}
	if meta.HasPassword && password == "" {
		return nil, ErrPasswordRequired
	}

	var verifier string
	if meta.HasPassword {
		verifier = keys.VerifierHash(password)
	}

	var view api.ViewResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(api.ViewRequest{PasswordVerifier: verifier}).
		SetResult(&view).
		Post("/api/secrets/" + id + "/view")
	if err != nil {
		return nil, fmt.Errorf("view request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}

	bundle, err := sharelink.Decode(sharelink.ServerFields{
		Ciphertext:  view.Ciphertext,
		IV:          view.IV,
		Salt:        view.Salt,
		ContentType: view.ContentType,
	}, keyFragment)
	if err != nil {
		return nil, err
	}

	effectiveKey := bundle.MasterKey
	if len(bundle.Salt) > 0 {
		derived := keys.DeriveFromPassword(password, bundle.Salt)
		effectiveKey, err = keys.Combine(bundle.MasterKey, derived)
		if err != nil {
			return nil, err
		}
	}

	framed, err := crypto.Open(effectiveKey, bundle.IV, bundle.Ciphertext)
	if err != nil {
		return nil, err
	}

	frameMeta, content, err := payload.Unframe(framed)
	if err != nil {
		return nil, err
	}

	return &Revealed{
		Metadata:       frameMeta,
		Text:           frameMeta.Text,
		Content:        content,
		ContentType:    bundle.ContentType,
		RemainingViews: view.RemainingViews,
		Destroyed:      view.Destroyed,
	}, nil
}

func buildPayload(secret Secret) (payload.Metadata, []byte, models.ContentType, error) {
	hasText := strings.TrimSpace(secret.Text) != ""
	hasFile := len(secret.FileData) > 0

	if !hasText && !hasFile {
		return payload.Metadata{}, nil, "", fmt.Errorf("secret needs text or an image")
	}

	if hasFile {
		if !supportedImageTypes[secret.MimeType] {
			return payload.Metadata{}, nil, "", fmt.Errorf("unsupported image type: %q", secret.MimeType)
		}
		if len(secret.FileData) > MaxFileSize {
			return payload.Metadata{}, nil, "", fmt.Errorf("file exceeds %d byte limit", MaxFileSize)
		}
	}

	text := strings.TrimSpace(secret.Text)

	switch {
	case hasText && hasFile:
		meta := payload.Metadata{
			Kind:     payload.KindMixed,
			FileName: secret.FileName,
			MimeType: secret.MimeType,
			Text:     text,
		}
		return meta, secret.FileData, models.ContentMixed, nil
	case hasFile:
		meta := payload.Metadata{
			Kind:     payload.KindImage,
			FileName: secret.FileName,
			MimeType: secret.MimeType,
		}
		return meta, secret.FileData, models.ContentImage, nil
	default:
		meta := payload.Metadata{
			Kind: payload.KindText,
			Text: text,
		}
		return meta, nil, models.ContentText, nil
	}
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() < 400 {
		return nil
	}

	var apiErr api.ErrorResponse
	_ = json.Unmarshal(resp.Body(), &apiErr)

	switch resp.StatusCode() {
	case 401:
		if strings.Contains(apiErr.Error, "required") {
			return ErrPasswordRequired
		}
		return ErrInvalidPassword
	case 404, 410:
		return ErrSecretUnavailable
	case 429:
		return ErrRateLimited
	default:
		if apiErr.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode(), apiErr.Error)
		}
		return fmt.Errorf("server error (%d)", resp.StatusCode())
	}
}
