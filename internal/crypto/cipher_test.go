package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyKey = "0123456789abcdef0123456789abcdef"

func newTestCipher(t *testing.T, secret string) *Cipher {
	t.Helper()
	c, err := NewCipher(secret, legacyKey)
	require.NoError(t, err)
	return c
}

func randomPrintable(t *testing.T, n int) string {
	t.Helper()
	var sb strings.Builder
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, big.NewInt(95))
		require.NoError(t, err)
		sb.WriteByte(byte(32 + v.Int64()))
	}
	return sb.String()
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t, "enc-secret")

	for n := 1; n <= 256; n += 17 {
		plain := randomPrintable(t, n)
		enc, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(enc, "v1:"))
		assert.NotContains(t, enc, plain)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, plain, dec)
	}
}

func TestCipher_RandomIV(t *testing.T) {
	c := newTestCipher(t, "enc-secret")
	a, err := c.Encrypt("Secr3t!")
	require.NoError(t, err)
	b, err := c.Encrypt("Secr3t!")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCipher_Layout(t *testing.T) {
	c := newTestCipher(t, "enc-secret")
	enc, err := c.Encrypt("abc")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(enc, "v1:"))
	require.NoError(t, err)
	assert.Len(t, raw, ivSize+tagSize+3)
}

func TestCipher_WrongKeyFails(t *testing.T) {
	a := newTestCipher(t, "secret-a")
	b := newTestCipher(t, "secret-b")

	enc, err := a.Encrypt("Secr3t!")
	require.NoError(t, err)

	_, err = b.Decrypt(enc)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestCipher_TamperedFails(t *testing.T) {
	c := newTestCipher(t, "enc-secret")
	enc, err := c.Encrypt("Secr3t!")
	require.NoError(t, err)

	raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(enc, "v1:"))
	raw[len(raw)-1] ^= 0xff
	_, err = c.Decrypt("v1:" + base64.StdEncoding.EncodeToString(raw))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestCipher_Empty(t *testing.T) {
	c := newTestCipher(t, "enc-secret")
	enc, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", enc)

	dec, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", dec)
}

func TestCipher_Malformed(t *testing.T) {
	c := newTestCipher(t, "enc-secret")

	_, err := c.Decrypt("v1:%%%")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = c.Decrypt("v1:" + base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = c.Decrypt("plain text password")
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestCipher_LegacyGCMLayout(t *testing.T) {
	c := newTestCipher(t, "enc-secret")

	raw, err := sealGCM([]byte(legacyKey), []byte("old-pass"))
	require.NoError(t, err)
	legacy := base64.StdEncoding.EncodeToString(raw)

	dec, err := c.Decrypt(legacy)
	require.NoError(t, err)
	assert.Equal(t, "old-pass", dec)
	assert.True(t, c.NeedsUpgrade(legacy))

	noLegacy, err := NewCipher("enc-secret", "")
	require.NoError(t, err)
	_, err = noLegacy.Decrypt(legacy)
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

// sealSalted собирает конверт "Salted__" так же, как это делает OpenSSL.
func sealSalted(t *testing.T, passphrase, plaintext string) string {
	t.Helper()
	salt := make([]byte, 8)
	_, err := rand.Read(salt)
	require.NoError(t, err)

	key, iv := evpBytesToKey([]byte(passphrase), salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	data := []byte(plaintext + strings.Repeat(string(rune(pad)), pad))
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)

	raw := append([]byte(saltedPrefix), salt...)
	raw = append(raw, out...)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestCipher_LegacySalted(t *testing.T) {
	c := newTestCipher(t, "enc-secret")

	legacy := sealSalted(t, "enc-secret", "router-admin")
	assert.True(t, strings.HasPrefix(legacy, "U2FsdGVkX1"))

	dec, err := c.Decrypt(legacy)
	require.NoError(t, err)
	assert.Equal(t, "router-admin", dec)
	assert.False(t, c.NeedsUpgrade("v1:abc"))
}

func TestNewCipher_Validation(t *testing.T) {
	_, err := NewCipher("", "")
	assert.Error(t, err)

	_, err = NewCipher("secret", "short")
	assert.Error(t, err)
}
