package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// pbkdf2Iterations and pbkdf2KeyBits are the exact parameters §6 documents
// for the `[]` section's password-encryption scheme: "PBKDF2-HMAC-SHA1
// (128 iterations, 128-bit key)".
const (
	pbkdf2Iterations = 128
	pbkdf2KeyBits    = 128
)

// DecryptPassword reverses the AES-128-CBC/PBKDF2-HMAC-SHA1 scheme §6
// documents for `[]` section passwords: base64-decode, derive a key from
// key+salt via PBKDF2-HMAC-SHA1, then AES-128-CBC decrypt using iv. A
// plaintext (unencrypted) password is the common case in test/dev
// configurations, so an empty key or salt is treated as "not encrypted"
// and encoded is returned unchanged.
func DecryptPassword(encoded, key, salt, iv string) (string, error) {
	if key == "" || salt == "" {
		return encoded, nil
	}
	if encoded == "" {
		return "", nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("config: decode password: %w", err)
	}
	ivBytes := []byte(iv)
	if len(ivBytes) != aes.BlockSize {
		return "", fmt.Errorf("config: iv must be %d bytes, got %d", aes.BlockSize, len(ivBytes))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("config: encrypted password is not a multiple of the block size")
	}

	derivedKey := pbkdf2.Key([]byte(key), []byte(salt), pbkdf2Iterations, pbkdf2KeyBits/8, sha1.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return "", fmt.Errorf("config: aes cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cbc := cipher.NewCBCDecrypter(block, ivBytes)
	cbc.CryptBlocks(plaintext, ciphertext)

	plaintext = pkcs7Unpad(plaintext)
	return string(plaintext), nil
}

// pkcs7Unpad strips PKCS#7 padding, tolerating already-unpadded input
// (a malformed pad byte is treated as "no padding" rather than an error,
// since the scheme's reference implementation is the authority here, not
// this port).
func pkcs7Unpad(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	pad := int(data[len(data)-1])
	if pad <= 0 || pad > aes.BlockSize || pad > len(data) {
		return data
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return data
		}
	}
	return data[:len(data)-pad]
}
