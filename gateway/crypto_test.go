// Copyright 2025 CallWeave
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCipher(t *testing.T) *CredentialCipher {
	t.Helper()
	c, err := NewCredentialCipher([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return c
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := testCipher(t)

	for _, plaintext := range []string{
		"sk_live_abc123",
		"",
		"exactly-16-bytes",
		strings.Repeat("x", 1000),
		"unicode: 日本語 🔑",
	} {
		encrypted, err := c.Encrypt(plaintext)
		require.NoError(t, err)

		decrypted, err := c.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	c := testCipher(t)

	first, err := c.Encrypt("same-secret")
	require.NoError(t, err)
	second, err := c.Encrypt("same-secret")
	require.NoError(t, err)

	// Random IV per encryption
	assert.NotEqual(t, first, second)
}

func TestDecryptRejectsTampering(t *testing.T) {
	c := testCipher(t)

	encrypted, err := c.Encrypt("sk_live_abc123")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encrypted)
	require.NoError(t, err)
	raw[20] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = c.Decrypt(tampered)
	assert.ErrorIs(t, err, ErrCiphertextInvalid)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c := testCipher(t)

	for _, input := range []string{"", "not-base64!!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		_, err := c.Decrypt(input)
		assert.ErrorIs(t, err, ErrCiphertextInvalid, "input %q", input)
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	c := testCipher(t)
	other, err := NewCredentialCipher([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	encrypted, err := c.Encrypt("secret")
	require.NoError(t, err)

	_, err = other.Decrypt(encrypted)
	assert.ErrorIs(t, err, ErrCiphertextInvalid)
}

func TestNewCredentialCipherRejectsShortKey(t *testing.T) {
	_, err := NewCredentialCipher([]byte("too-short"))
	assert.Error(t, err)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "••••c123", MaskSecret("sk_live_abc123"))
	assert.Equal(t, "••••", MaskSecret("abc"))
	assert.Equal(t, "••••", MaskSecret(""))
}
