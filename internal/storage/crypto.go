package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Objects written by the upstream file store are sealed with
// password-derived AES-GCM. Layout: magic(8) + salt(16) + nonce(12) +
// ciphertext with appended auth tag.
const sealMagic = "GCM3NCR0"

const (
	sealSaltLen  = 16
	sealNonceLen = 12
	kdfRounds    = 100000
	kdfKeyLen    = 32
)

// Sealed reports whether data carries the encrypted-object magic.
func Sealed(data []byte) bool {
	return len(data) >= len(sealMagic) && string(data[:len(sealMagic)]) == sealMagic
}

// Seal encrypts data with a key derived from password.
func Seal(data []byte, password string) ([]byte, error) {
	salt := make([]byte, sealSaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, sealNonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, len(sealMagic)+sealSaltLen+sealNonceLen+len(data)+16)
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

// Unseal decrypts data produced by Seal.
func Unseal(data []byte, password string) ([]byte, error) {
	minLen := len(sealMagic) + sealSaltLen + sealNonceLen + 16
	if len(data) < minLen {
		return nil, fmt.Errorf("sealed data too short: %d bytes", len(data))
	}
	if !Sealed(data) {
		return nil, fmt.Errorf("missing encryption magic")
	}

	salt := data[len(sealMagic) : len(sealMagic)+sealSaltLen]
	nonce := data[len(sealMagic)+sealSaltLen : len(sealMagic)+sealSaltLen+sealNonceLen]
	ciphertext := data[len(sealMagic)+sealSaltLen+sealNonceLen:]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, kdfRounds, kdfKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}
