package security

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for admin password hashes.
const PasswordCost = 12

// HashPassword hashes a password using bcrypt with PasswordCost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// VerifyPassword compares a password with a bcrypt hash
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// AdminCredentials is the single admin account allowed to run bulk conversions.
type AdminCredentials struct {
	User         string
	PasswordHash string
}

// Configured reports whether both a user name and a hash are set.
func (c AdminCredentials) Configured() bool {
	return c.User != "" && c.PasswordHash != ""
}

// Authenticate checks user and password against the configured account and
// returns the matching principal.
func (c AdminCredentials) Authenticate(user, password string) (Principal, bool) {
	if !c.Configured() {
		return Principal{}, false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.User)) == 1
	// always run bcrypt so timing does not reveal whether the user matched
	passOK := VerifyPassword(c.PasswordHash, password)
	if !userOK || !passOK {
		return Principal{}, false
	}
	return Principal{Name: c.User, Admin: true}, true
}
