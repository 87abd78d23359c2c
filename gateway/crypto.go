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
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// CredentialCipher encrypts tenant API credentials at rest with
// AES-256-CBC and authenticates them with HMAC-SHA256 over IV plus
// ciphertext (encrypt-then-MAC). The encryption and MAC keys are both
// derived from the master key so only one secret has to be managed.
type CredentialCipher struct {
	encKey []byte
	macKey []byte
}

var (
	// ErrCiphertextInvalid covers truncated, corrupted, or tampered payloads
	ErrCiphertextInvalid = errors.New("ciphertext invalid or tampered")
)

// NewCredentialCipher derives the cipher's keys from master key
// material. The master key must be at least 32 bytes.
func NewCredentialCipher(masterKey []byte) (*CredentialCipher, error) {
	if len(masterKey) < 32 {
		return nil, fmt.Errorf("master key must be at least 32 bytes, got %d", len(masterKey))
	}

	encKey := sha256.Sum256(append([]byte("callweave-enc:"), masterKey...))
	macKey := sha256.Sum256(append([]byte("callweave-mac:"), masterKey...))
	return &CredentialCipher{
		encKey: encKey[:],
		macKey: macKey[:],
	}, nil
}

// Encrypt returns base64(IV || ciphertext || HMAC)
func (c *CredentialCipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	mac := hmac.New(sha256.New, c.macKey)
	mac.Write(iv)
	mac.Write(ciphertext)

	payload := append(iv, ciphertext...)
	payload = append(payload, mac.Sum(nil)...)
	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt verifies the MAC before touching the ciphertext and returns
// the original plaintext.
func (c *CredentialCipher) Decrypt(encoded string) (string, error) {
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrCiphertextInvalid
	}

	macSize := sha256.Size
	if len(payload) < aes.BlockSize+aes.BlockSize+macSize {
		return "", ErrCiphertextInvalid
	}

	iv := payload[:aes.BlockSize]
	ciphertext := payload[aes.BlockSize : len(payload)-macSize]
	gotMAC := payload[len(payload)-macSize:]

	if len(ciphertext)%aes.BlockSize != 0 {
		return "", ErrCiphertextInvalid
	}

	mac := hmac.New(sha256.New, c.macKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	if !hmac.Equal(gotMAC, mac.Sum(nil)) {
		return "", ErrCiphertextInvalid
	}

	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil {
		return "", ErrCiphertextInvalid
	}
	return string(plaintext), nil
}

// MaskSecret renders a secret for API responses: bullets plus the last
// four characters. Short secrets are fully masked.
func MaskSecret(secret string) string {
	if len(secret) <= 4 {
		return "••••"
	}
	return "••••" + secret[len(secret)-4:]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded data length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
