package util

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost        = 10
	minPasswordLength = 8
	// bcrypt rejects longer inputs.
	maxPasswordLength = 72
	passwordSpecials  = "@$!%*?&"
)

var (
	ErrPasswordShort     = errors.New("Password must be at least 8 characters long.")
	ErrPasswordLong      = errors.New("Password must be at most 72 bytes long.")
	ErrPasswordNoLower   = errors.New("Password must contain at least one lowercase letter.")
	ErrPasswordNoUpper   = errors.New("Password must contain at least one uppercase letter.")
	ErrPasswordNoDigit   = errors.New("Password must contain at least one number.")
	ErrPasswordNoSpecial = errors.New("Password must contain at least one special character (e.g., @$!%*?&).")
	ErrPasswordEmpty     = errors.New("password cannot be empty")
)

// ValidatePassword applies the same rules the registration form enforces.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordShort
	}
	if len(password) > maxPasswordLength {
		return ErrPasswordLong
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	switch {
	case !hasLower:
		return ErrPasswordNoLower
	case !hasUpper:
		return ErrPasswordNoUpper
	case !hasDigit:
		return ErrPasswordNoDigit
	case !hasSpecial:
		return ErrPasswordNoSpecial
	}
	return nil
}

func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", ErrPasswordEmpty
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(password, hash string) bool {
	if len(password) == 0 || len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
