package keygen

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const secretCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateSecretKey returns a random alphanumeric string suitable for
// security.secret_key.
func GenerateSecretKey(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("keygen: invalid length %d", length)
	}
	result := make([]byte, length)
	for i := range result {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(secretCharset))))
		if err != nil {
			return "", err
		}
		result[i] = secretCharset[num.Int64()]
	}
	return string(result), nil
}

// GenerateCookieKey returns 32 random bytes, base64 encoded.
func GenerateCookieKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
