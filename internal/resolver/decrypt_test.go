package resolver

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encrypt mirrors the upstream scheme: AES-256-CBC, SHA-256 key, zero IV,
// PKCS#7 padding.
func encrypt(t *testing.T, plaintext, secret string) string {
	t.Helper()

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	require.NoError(t, err)

	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := append([]byte(plaintext), bytes.Repeat([]byte{byte(padLen)}, padLen)...)

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out)
}

func TestDecrypt(t *testing.T) {
	payload := encrypt(t, "https://cdn.example/stream.m3u8", "super-secret")

	url, err := Decrypt(payload, "super-secret")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/stream.m3u8", url)
}

func TestDecryptIsDeterministic(t *testing.T) {
	payload := encrypt(t, "https://cdn.example/stream.m3u8", "super-secret")

	first, err := Decrypt(payload, "super-secret")
	require.NoError(t, err)
	second, err := Decrypt(payload, "super-secret")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecryptSecretSensitivity(t *testing.T) {
	secret := "super-secret"
	plaintext := "https://cdn.example/stream.m3u8"
	payload := encrypt(t, plaintext, secret)

	// mutate a single character at the start, middle and end
	for _, i := range []int{0, len(secret) / 2, len(secret) - 1} {
		mutated := []byte(secret)
		mutated[i] ^= 1

		url, err := Decrypt(payload, string(mutated))
		if err == nil {
			assert.NotEqual(t, plaintext, url, "mutated secret at index %d must not produce the original plaintext", i)
		}
	}
}

func TestDecryptMalformedInputs(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		secret  string
	}{
		{"invalid base64", "not-base64!!!", "secret"},
		{"empty payload", "", "secret"},
		{"unaligned ciphertext", base64.StdEncoding.EncodeToString([]byte("short")), "secret"},
		{"garbage blocks", base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xff}, 32)), "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decrypt(tt.payload, tt.secret)
			assert.ErrorIs(t, err, ErrDecryptFailed)
		})
	}
}
