package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef" // 32 bytes

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)

	plaintext := []byte("EAAG-some-platform-access-token")

	ciphertext, err := Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)

	a, err := Encrypt([]byte("same input"))
	require.NoError(t, err)
	b, err := Encrypt([]byte("same input"))
	require.NoError(t, err)

	// Random nonce per call.
	assert.NotEqual(t, a, b)
}

func TestEncrypt_BadKeyLength(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "too-short")

	_, err := Encrypt([]byte("data"))
	assert.Error(t, err)
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)

	ciphertext, err := Encrypt([]byte("payload"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xff

	_, err = Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestDecrypt_TooShort(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", testKey)

	_, err := Decrypt([]byte{0x01, 0x02})
	assert.Error(t, err)
}
