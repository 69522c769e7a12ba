package auth

import (
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8
	// MaxPasswordLength is bcrypt's input limit.
	MaxPasswordLength = 72
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

// ValidateCredentials checks username and password shape for registration.
func ValidateCredentials(username, password string) error {
	if !usernamePattern.MatchString(username) {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			"username must be 3-32 characters of a-z, 0-9 or _", map[string]string{"Field": "username"})
	}
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("password must be %d-%d bytes", MinPasswordLength, MaxPasswordLength),
			map[string]string{"Field": "password"})
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports INVALID_CREDENTIALS when password does not match.
func CheckPassword(hash, password string) error {
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return apperrors.New(apperrors.CodeInvalidCredentials, "invalid username or password")
	}
	return nil
}
