package token

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used by Hash when cost is zero.
const DefaultCost = bcrypt.DefaultCost

// ErrEmptyToken is returned when hashing an empty token.
var ErrEmptyToken = errors.New("token: empty token")

// Hash returns the bcrypt hash of token. A zero cost uses DefaultCost.
func Hash(token string, cost int) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	if cost == 0 {
		cost = DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", fmt.Errorf("token: hash: %w", err)
	}
	return string(h), nil
}

// Verify reports whether token matches hash. Empty inputs never match.
func Verify(hash, token string) bool {
	if hash == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}

// ValidateHash checks that hash is a bcrypt hash.
func ValidateHash(hash string) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("token: not a bcrypt hash: %w", err)
	}
	return nil
}
