package account

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/tendant/simple-useradmin/pkg/errors"
)

// HashPassword bcrypt-hashes plaintext. Passwords over 72 bytes are an InvalidCredential.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperrors.InvalidCredential("password exceeds 72 bytes")
	}
	if err != nil {
		return "", apperrors.InternalWrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// CheckPassword reports whether plaintext matches a stored hash.
func CheckPassword(hash, plaintext string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
