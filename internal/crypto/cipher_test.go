package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil.share/internal/keys"
)

func freshMaterial(t *testing.T) (key, iv []byte) {
	t.Helper()
	key, err := keys.NewMasterKey()
	require.NoError(t, err)
	iv, err = keys.NewIV()
	require.NoError(t, err)
	return key, iv
}

func TestSealOpenRoundTrip(t *testing.T) {
	key, iv := freshMaterial(t)
	plaintext := []byte("the plan is in the usual place")

	ciphertext, err := Seal(key, iv, plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), "plan")
	assert.Greater(t, len(ciphertext), len(plaintext), "tag appended")

	got, err := Open(key, iv, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpenWrongKeyFails(t *testing.T) {
	key, iv := freshMaterial(t)
	ciphertext, err := Seal(key, iv, []byte("secret"))
	require.NoError(t, err)

	otherKey, err := keys.NewMasterKey()
	require.NoError(t, err)

	_, err = Open(otherKey, iv, ciphertext)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestOpenWrongIVFails(t *testing.T) {
	key, iv := freshMaterial(t)
	ciphertext, err := Seal(key, iv, []byte("secret"))
	require.NoError(t, err)

	otherIV, err := keys.NewIV()
	require.NoError(t, err)

	_, err = Open(key, otherIV, ciphertext)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestOpenTamperedCiphertextFails(t *testing.T) {
	key, iv := freshMaterial(t)
	ciphertext, err := Seal(key, iv, []byte("secret"))
	require.NoError(t, err)

	ciphertext[0] ^= 0x01

	_, err = Open(key, iv, ciphertext)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestSealRejectsBadMaterial(t *testing.T) {
	key, iv := freshMaterial(t)

	_, err := Seal(key[:16], iv, []byte("x"))
	assert.Error(t, err, "short key")

	_, err = Seal(key, iv[:8], []byte("x"))
	assert.Error(t, err, "short iv")

	_, err = Open(key, iv[:8], []byte("x"))
	assert.Error(t, err)
}

// Neither the master key alone nor the password alone may decrypt a
// password-protected bundle.
func TestBlindedKeyNeedsBothFactors(t *testing.T) {
	masterKey, iv := freshMaterial(t)
	salt := []byte("0123456789abcdef")
	derived := keys.DeriveFromPassword("hunter2", salt)
	blinded, err := keys.Combine(masterKey, derived)
	require.NoError(t, err)

	ciphertext, err := Seal(blinded, iv, []byte("secret"))
	require.NoError(t, err)

	_, err = Open(masterKey, iv, ciphertext)
	assert.ErrorIs(t, err, ErrAuthenticationFailed, "master key alone")

	_, err = Open(derived, iv, ciphertext)
	assert.ErrorIs(t, err, ErrAuthenticationFailed, "derived key alone")

	wrongDerived := keys.DeriveFromPassword("hunter3", salt)
	wrongBlinded, err := keys.Combine(masterKey, wrongDerived)
	require.NoError(t, err)
	_, err = Open(wrongBlinded, iv, ciphertext)
	assert.ErrorIs(t, err, ErrAuthenticationFailed, "wrong password")

	got, err := Open(blinded, iv, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), got)
}

func TestEmptyPlaintextRoundTrip(t *testing.T) {
	key, iv := freshMaterial(t)

	ciphertext, err := Seal(key, iv, nil)
	require.NoError(t, err)

	got, err := Open(key, iv, ciphertext)
	require.NoError(t, err)
	assert.Empty(t, got)
}
