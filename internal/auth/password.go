package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost for staff passwords. Hashes stored with a
// lower cost are reported by NeedsRehash.
const PasswordCost = 10

const (
	MinPasswordLength = 8
	maxPasswordBytes  = 72 // bcrypt ignores anything past this
)

var ErrWeakPassword = errors.New("password must be between 8 and 72 bytes")

// HashPassword hashes a staff password for the users table.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength || len(password) > maxPasswordBytes {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// NeedsRehash reports whether a stored hash is below PasswordCost or unreadable.
func NeedsRehash(hashedPassword string) bool {
	cost, err := bcrypt.Cost([]byte(hashedPassword))
	return err != nil || cost < PasswordCost
}
