package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidKey        = errors.New("crypto: invalid encryption key")
	ErrEncryptionFailed  = errors.New("crypto: encryption failed")
	ErrDecryptionFailed  = errors.New("crypto: decryption failed")
	ErrInvalidCipherText = errors.New("crypto: invalid cipher text")
)

// SealedPrefix marks configuration values produced by Seal.
const SealedPrefix = "enc:"

const (
	saltSize    = 16
	keySize     = 32
	argonTime   = 1
	argonMemory = 64 * 1024
	argonLanes  = 4
)

// deriveKey stretches key into a 32-byte AES key with argon2id
func deriveKey(key string, salt []byte) []byte {
	return argon2.IDKey([]byte(key), salt, argonTime, argonMemory, argonLanes, keySize)
}

// Encrypt encrypts plaintext using AES-256-GCM. The output carries the salt
// and nonce ahead of the sealed data.
func Encrypt(plainText string, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", ErrEncryptionFailed
	}

	gcm, err := newGCM(deriveKey(key, salt))
	if err != nil {
		return "", ErrEncryptionFailed
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", ErrEncryptionFailed
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plainText)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt decrypts ciphertext produced by Encrypt
func Decrypt(cipherText string, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	data, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return "", ErrInvalidCipherText
	}
	if len(data) < saltSize {
		return "", ErrInvalidCipherText
	}

	salt, rest := data[:saltSize], data[saltSize:]
	gcm, err := newGCM(deriveKey(key, salt))
	if err != nil {
		return "", ErrDecryptionFailed
	}

	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return "", ErrInvalidCipherText
	}

	nonce, cipherData := rest[:nonceSize], rest[nonceSize:]
	plainText, err := gcm.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plainText), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts a secret for storage in config files.
func Seal(secret, key string) (string, error) {
	sealed, err := Encrypt(secret, key)
	if err != nil {
		return "", err
	}
	return SealedPrefix + sealed, nil
}

func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

// Open returns value unchanged unless it carries SealedPrefix.
func Open(value, key string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	return Decrypt(strings.TrimPrefix(value, SealedPrefix), key)
}

// CookieKey derives the base64 key the cookie encryption middleware expects.
// The salt is fixed so the key is stable across restarts.
func CookieKey(secret string) string {
	key := argon2.IDKey([]byte(secret), []byte("recarga-cookie-key"), argonTime, argonMemory, argonLanes, keySize)
	return base64.StdEncoding.EncodeToString(key)
}
