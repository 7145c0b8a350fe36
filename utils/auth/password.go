package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest password accepted for a staff account
	MinPasswordLength = 8
	// MaxPasswordBytes is bcrypt's input limit; longer passwords are truncated silently
	MaxPasswordBytes = 72
	// DefaultHashCost is used unless BCRYPT_COST configures another one
	DefaultHashCost = 12
)

var ErrPasswordMismatch = errors.New("password does not match")

// PolicyError reports why a password may not be used. Problems are phrased as
// validation messages for the password field.
type PolicyError struct {
	Problems []string
}

func (e *PolicyError) Error() string {
	return "password rejected: " + strings.Join(e.Problems, " ")
}

var hashCost = DefaultHashCost

// SetHashCost changes the bcrypt cost of HashPassword. Call it once at startup;
// costs outside bcrypt's range are ignored.
func SetHashCost(cost int) {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		hashCost = cost
	}
}

// PasswordProblems lists every policy rule password breaks for the account with
// the given e-mail. An empty result means the password is acceptable.
func PasswordProblems(password, email string) []string {
	var problems []string
	if len(password) < MinPasswordLength {
		problems = append(problems, "The password must be at least 8 characters.")
	}
	if len(password) > MaxPasswordBytes {
		problems = append(problems, "The password may not be greater than 72 bytes.")
	}
	if email != "" {
		local, _, _ := strings.Cut(email, "@")
		if strings.EqualFold(password, email) || strings.EqualFold(password, local) {
			problems = append(problems, "The password must not match the e-mail address.")
		}
	}
	return problems
}

// HashPassword checks the length rules and returns a bcrypt hash of password
func HashPassword(password string) (string, error) {
	if problems := PasswordProblems(password, ""); len(problems) > 0 {
		return "", &PolicyError{Problems: problems}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword compares password with a stored hash
func VerifyPassword(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
