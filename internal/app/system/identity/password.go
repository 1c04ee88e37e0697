// Package identity manages user credentials: the password policy, the user
// manager over the credential store, and password sign-in.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// PasswordOptions is the password-complexity policy applied when a password
// is set. A zero value requires nothing.
type PasswordOptions struct {
	RequiredLength         int
	RequiredUniqueChars    int
	RequireDigit           bool
	RequireLowercase       bool
	RequireUppercase       bool
	RequireNonAlphanumeric bool
}

// DefaultPasswordOptions is the relaxed policy IPTGram runs with: six
// characters, no character-class requirements.
func DefaultPasswordOptions() PasswordOptions {
	return PasswordOptions{
		RequiredLength:      6,
		RequiredUniqueChars: 1,
	}
}

// MaxPasswordBytes is the longest password bcrypt can hash.
const MaxPasswordBytes = 72

// Rule violations reported inside a PasswordError.
var (
	ErrPasswordTooShort         = errors.New("password is too short")
	ErrPasswordTooLong          = errors.New("password is too long")
	ErrPasswordUniqueChars      = errors.New("password has too few unique characters")
	ErrPasswordRequiresDigit    = errors.New("password must contain a digit")
	ErrPasswordRequiresLower    = errors.New("password must contain a lowercase letter")
	ErrPasswordRequiresUpper    = errors.New("password must contain an uppercase letter")
	ErrPasswordRequiresNonAlnum = errors.New("password must contain a non-alphanumeric character")
)

// PasswordError lists every rule a password broke.
type PasswordError struct {
	Violations []error
}

func (e *PasswordError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match individual violations.
func (e *PasswordError) Unwrap() []error {
	return e.Violations
}

// Validate checks password against the policy. It returns nil or a
// *PasswordError carrying all violations. Passwords over MaxPasswordBytes
// are always rejected, whatever the policy.
func (o PasswordOptions) Validate(password string) error {
	var violations []error

	if len(password) > MaxPasswordBytes {
		violations = append(violations, fmt.Errorf("%w (maximum %d bytes)", ErrPasswordTooLong, MaxPasswordBytes))
	}

	if o.RequiredLength > 0 && len([]rune(password)) < o.RequiredLength {
		violations = append(violations, fmt.Errorf("%w (minimum %d)", ErrPasswordTooShort, o.RequiredLength))
	}

	var hasDigit, hasLower, hasUpper, hasOther bool
	unique := make(map[rune]struct{})
	for _, c := range password {
		unique[c] = struct{}{}
		switch {
		case unicode.IsDigit(c):
			hasDigit = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsUpper(c):
			hasUpper = true
		case !unicode.IsLetter(c):
			hasOther = true
		}
	}

	if o.RequiredUniqueChars > 1 && len(unique) < o.RequiredUniqueChars {
		violations = append(violations, fmt.Errorf("%w (minimum %d)", ErrPasswordUniqueChars, o.RequiredUniqueChars))
	}
	if o.RequireDigit && !hasDigit {
		violations = append(violations, ErrPasswordRequiresDigit)
	}
	if o.RequireLowercase && !hasLower {
		violations = append(violations, ErrPasswordRequiresLower)
	}
	if o.RequireUppercase && !hasUpper {
		violations = append(violations, ErrPasswordRequiresUpper)
	}
	if o.RequireNonAlphanumeric && !hasOther {
		violations = append(violations, ErrPasswordRequiresNonAlnum)
	}

	if len(violations) == 0 {
		return nil
	}
	return &PasswordError{Violations: violations}
}
