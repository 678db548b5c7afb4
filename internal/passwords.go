package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lychee-technology/labdb"
	"golang.org/x/crypto/bcrypt"
)

var passwordCost = bcrypt.DefaultCost

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", labdb.NewValidationError("password", "must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// checkPassword reports whether password matches hash. A malformed hash is an
// error, a mismatch is not.
func checkPassword(hash, password string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password: %w", err)
	}
}

// splitGecos derives first and last names from a passwd GECOS field.
// "Last, First" splits on the first comma, "First Last" on the first run of
// whitespace. A single word becomes the last name and the login becomes the
// first name.
func splitGecos(login, gecos string) (first, last string) {
	if i := strings.Index(gecos, ","); i > 0 {
		return strings.TrimSpace(gecos[i+1:]), strings.TrimSpace(gecos[:i])
	}
	parts := strings.Fields(gecos)
	switch len(parts) {
	case 0:
		return login, ""
	case 1:
		return login, parts[0]
	default:
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(gecos), parts[0]))
		return parts[0], rest
	}
}

// defaultPassword is the temporary password given to provisioned users.
func defaultPassword(login string) string {
	return login + "123"
}
