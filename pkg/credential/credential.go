// Package credential generates and checks account passwords.
package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	DefaultLength        = 32
	ServiceAccountLength = 32
	MinHumanLength       = 8
)

// Generator produces random passwords.
type Generator interface {
	Generate(length int) (string, error)
}

// RandomGenerator draws from crypto/rand.
type RandomGenerator struct{}

// Generate implements Generator.
func (RandomGenerator) Generate(length int) (string, error) {
	return Generate(length)
}

// Generate returns length characters drawn uniformly from [a-zA-Z0-9].
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid password length: %d", length)
	}
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// MinLength is the shortest password accepted for the account category.
func MinLength(serviceAccount bool) int {
	if serviceAccount {
		return ServiceAccountLength
	}
	return MinHumanLength
}

// Acceptable reports whether plaintext is long enough for the account category.
func Acceptable(plaintext string, serviceAccount bool) bool {
	return len(plaintext) >= MinLength(serviceAccount)
}
