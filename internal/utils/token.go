package utils

import (
	"crypto/rand"
	"fmt"
)

// Crockford-style alphabet without I and O.
const tokenAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// RandToken returns a random token of n characters, used as the default
// control plane token when none is configured.
func RandToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid token length: %d", n)
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i := range buf {
		buf[i] = tokenAlphabet[int(buf[i])%len(tokenAlphabet)]
	}
	return string(buf), nil
}

// MaskSecret keeps the first four characters of s for logs.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "*****"
	}
	return s[:4] + "*****"
}
