package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpirySelection(t *testing.T) {
	durations := map[string]time.Duration{
		"five-minutes": 5 * time.Minute,
		"one-hour":     time.Hour,
		"one-day":      24 * time.Hour,
		"seven-days":   7 * 24 * time.Hour,
	}

	for s, want := range durations {
		sel, err := ParseExpirySelection(s)
		require.NoError(t, err)
		assert.Equal(t, want, sel.Duration())
	}

	_, err := ParseExpirySelection("two-weeks")
	assert.Error(t, err)
	_, err = ParseExpirySelection("")
	assert.Error(t, err)
}

func TestParseContentType(t *testing.T) {
	for _, s := range []string{"text", "image", "mixed"} {
		ct, err := ParseContentType(s)
		require.NoError(t, err)
		assert.Equal(t, ContentType(s), ct)
	}

	_, err := ParseContentType("video")
	assert.Error(t, err)
}

func TestSecretRecordState(t *testing.T) {
	now := time.Now()
	record := &SecretRecord{
		ExpiresAt: now.Add(time.Hour),
		MaxViews:  2,
	}

	assert.False(t, record.ExpiredAt(now))
	assert.True(t, record.ExpiredAt(now.Add(time.Hour)), "expiry boundary is inclusive")
	assert.True(t, record.ExpiredAt(now.Add(2*time.Hour)))

	assert.False(t, record.Exhausted())
	record.ViewCount = 2
	assert.True(t, record.Exhausted())

	assert.False(t, record.HasPassword())
	record.VerifierHash = []byte("hash")
	assert.True(t, record.HasPassword())
}
