package token

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

const (
	// Prefix marks generated admin tokens.
	Prefix = "pxadm_"

	// DefaultLength is the default token length in random bytes.
	DefaultLength = 32
)

// Generate returns a new prefixed admin token.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength returns a prefixed token with length random bytes.
func GenerateWithLength(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return Prefix + base64.RawURLEncoding.EncodeToString(bytes), nil
}

// IsGenerated reports whether s has the shape of a token from Generate.
func IsGenerated(s string) bool {
	body, ok := strings.CutPrefix(s, Prefix)
	if !ok || len(body) != base64.RawURLEncoding.EncodedLen(DefaultLength) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(body)
	return err == nil
}
