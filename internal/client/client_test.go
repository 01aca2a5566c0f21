package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil.share/config"
	"veil.share/internal/api"
	"veil.share/internal/logger"
	"veil.share/internal/models"
	"veil.share/internal/payload"
	"veil.share/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	cfg := config.Default()
	cfg.RateLimit.Enabled = false

	st := store.NewMemoryStore(time.Hour, logger.Nop())
	t.Cleanup(func() { st.Close() })

	srv := httptest.NewServer(api.SetupRouter(st, cfg, logger.Nop()))
	t.Cleanup(srv.Close)

	return srv, New(srv.URL, 5*time.Second)
}

func TestCreateAndRevealText(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	created, err := c.Create(ctx, Secret{
		Text:     "hello",
		Expiry:   models.ExpiryOneHour,
		MaxViews: 2,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Contains(t, created.ShareURL, "/s/"+created.ID+"#")

	first, err := c.Reveal(ctx, created.ShareURL, "")
	require.NoError(t, err)
	assert.Equal(t, "hello", first.Text)
	assert.Empty(t, first.Content)
	assert.Equal(t, models.ContentText, first.ContentType)
	assert.Equal(t, 1, first.RemainingViews)
	assert.False(t, first.Destroyed)

	second, err := c.Reveal(ctx, created.ShareURL, "")
	require.NoError(t, err)
	assert.Equal(t, "hello", second.Text)
	assert.Equal(t, 0, second.RemainingViews)
	assert.True(t, second.Destroyed)

	_, err = c.Reveal(ctx, created.ShareURL, "")
	assert.ErrorIs(t, err, ErrSecretUnavailable)
}

func TestCreateAndRevealImage(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x01}

	created, err := c.Create(ctx, Secret{
		FileName: "diagram.png",
		MimeType: "image/png",
		FileData: imageBytes,
		Expiry:   models.ExpiryFiveMinutes,
		MaxViews: 1,
	})
	require.NoError(t, err)

	revealed, err := c.Reveal(ctx, created.ShareURL, "")
	require.NoError(t, err)
	assert.Equal(t, payload.KindImage, revealed.Metadata.Kind)
	assert.Equal(t, "diagram.png", revealed.Metadata.FileName)
	assert.Equal(t, "image/png", revealed.Metadata.MimeType)
	assert.Equal(t, imageBytes, revealed.Content)
	assert.True(t, revealed.Destroyed)
}

func TestCreateAndRevealMixed(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	created, err := c.Create(ctx, Secret{
		Text:     "here is the screenshot",
		FileName: "shot.jpg",
		MimeType: "image/jpeg",
		FileData: []byte("jpeg data"),
		Expiry:   models.ExpiryOneDay,
		MaxViews: 1,
	})
	require.NoError(t, err)

	revealed, err := c.Reveal(ctx, created.ShareURL, "")
	require.NoError(t, err)
	assert.Equal(t, payload.KindMixed, revealed.Metadata.Kind)
	assert.Equal(t, "here is the screenshot", revealed.Text)
	assert.Equal(t, []byte("jpeg data"), revealed.Content)
	assert.Equal(t, models.ContentMixed, revealed.ContentType)
}

func TestPasswordProtectedRoundTrip(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	created, err := c.Create(ctx, Secret{
		Text:     "two factors",
		Password: "hunter2",
		Expiry:   models.ExpiryOneHour,
		MaxViews: 5,
	})
	require.NoError(t, err)

	_, err = c.Reveal(ctx, created.ShareURL, "")
	assert.ErrorIs(t, err, ErrPasswordRequired)

	_, err = c.Reveal(ctx, created.ShareURL, "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	revealed, err := c.Reveal(ctx, created.ShareURL, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "two factors", revealed.Text)
	assert.Equal(t, 4, revealed.RemainingViews)
}

func TestMetadataDoesNotConsumeViews(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	created, err := c.Create(ctx, Secret{
		Text:     "peekaboo",
		Expiry:   models.ExpiryOneHour,
		MaxViews: 1,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		meta, err := c.Metadata(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, meta.RemainingViews)
	}

	revealed, err := c.Reveal(ctx, created.ShareURL, "")
	require.NoError(t, err)
	assert.Equal(t, "peekaboo", revealed.Text)
}

func TestCreateValidation(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	_, err := c.Create(ctx, Secret{Expiry: models.ExpiryOneHour, MaxViews: 1})
	assert.Error(t, err, "neither text nor file")

	_, err = c.Create(ctx, Secret{
		FileName: "notes.pdf",
		MimeType: "application/pdf",
		FileData: []byte("pdf"),
		Expiry:   models.ExpiryOneHour,
		MaxViews: 1,
	})
	assert.Error(t, err, "unsupported mime type")

	_, err = c.Create(ctx, Secret{
		FileName: "big.png",
		MimeType: "image/png",
		FileData: make([]byte, MaxFileSize+1),
		Expiry:   models.ExpiryOneHour,
		MaxViews: 1,
	})
	assert.Error(t, err, "file over the limit")

	_, err = c.Create(ctx, Secret{Text: "x", Expiry: "two-weeks", MaxViews: 1})
	assert.Error(t, err, "server rejects unknown expiry")
}

func TestRevealBadURL(t *testing.T) {
	_, c := newTestServer(t)

	_, err := c.Reveal(context.Background(), "http://host/s/abc", "")
	assert.Error(t, err, "missing key fragment")
}

func TestTamperedFragmentFailsDecryption(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	created, err := c.Create(ctx, Secret{
		Text:     "integrity",
		Expiry:   models.ExpiryOneHour,
		MaxViews: 2,
	})
	require.NoError(t, err)

	// Flip a character in the key fragment; the view is still consumed
	// but decryption must fail opaquely.
	idx := strings.LastIndex(created.ShareURL, "#") + 1
	tampered := created.ShareURL[:idx] + flip(created.ShareURL[idx:])

	_, err = c.Reveal(ctx, tampered, "")
	assert.Error(t, err)
}

func flip(fragment string) string {
	b := []byte(fragment)
	if b[0] == 'A' {
		b[0] = 'B'
	} else {
		b[0] = 'A'
	}
	return string(b)
}
