package auth

import (
	"strings"
	"unicode"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/gamestore/internal/apperr"
)

const minPasswordLen = 8

// PasswordHasher hashes and verifies account secrets.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hashed string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using the given cost, or bcrypt.DefaultCost
// when cost is out of range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", errors.Wrap(err, "bcrypt hash")
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// ValidatePassword enforces the minimum password policy: at least eight
// characters with at least one letter and one digit.
func ValidatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return apperr.Newf(apperr.Validation, "password must be at least %d characters", minPasswordLen)
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return apperr.New(apperr.Validation, "password must contain letters and digits")
	}
	if strings.TrimSpace(pw) != pw {
		return apperr.New(apperr.Validation, "password must not start or end with whitespace")
	}
	return nil
}
