package identity

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestDefaultPolicy_AcceptsAllLowercase(t *testing.T) {
	if err := DefaultPasswordOptions().Validate("abcdefgh"); err != nil {
		t.Errorf("expected %q to be accepted, got %v", "abcdefgh", err)
	}
}

func TestDefaultPolicy_AcceptsWithoutClasses(t *testing.T) {
	for _, pw := range []string{"ABCDEF", "123456", "!!!!!!", "palavra", "çãõéíú"} {
		if err := DefaultPasswordOptions().Validate(pw); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", pw, err)
		}
	}
}

func TestDefaultPolicy_RejectsShort(t *testing.T) {
	err := DefaultPasswordOptions().Validate("abc")
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestValidate_LengthCountsRunes(t *testing.T) {
	// six runes, twelve bytes
	if err := DefaultPasswordOptions().Validate("ççççç!"); err != nil {
		t.Errorf("expected rune count to satisfy length, got %v", err)
	}
}

func TestStrictPolicy_ReportsEveryViolation(t *testing.T) {
	strict := PasswordOptions{
		RequiredLength:         10,
		RequiredUniqueChars:    4,
		RequireDigit:           true,
		RequireLowercase:       true,
		RequireUppercase:       true,
		RequireNonAlphanumeric: true,
	}
	err := strict.Validate("aaa")

	var pe *PasswordError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PasswordError, got %T", err)
	}
	if len(pe.Violations) != 5 {
		t.Errorf("expected 5 violations, got %d: %v", len(pe.Violations), pe)
	}
	for _, want := range []error{ErrPasswordTooShort, ErrPasswordUniqueChars, ErrPasswordRequiresDigit, ErrPasswordRequiresUpper, ErrPasswordRequiresNonAlnum} {
		if !errors.Is(err, want) {
			t.Errorf("expected violation %v", want)
		}
	}
	if errors.Is(err, ErrPasswordRequiresLower) {
		t.Error("did not expect lowercase violation")
	}
}

func TestStrictPolicy_AcceptsStrongPassword(t *testing.T) {
	strict := PasswordOptions{
		RequiredLength:         8,
		RequireDigit:           true,
		RequireLowercase:       true,
		RequireUppercase:       true,
		RequireNonAlphanumeric: true,
	}
	if err := strict.Validate("Passw0rd!"); err != nil {
		t.Errorf("expected strong password to pass, got %v", err)
	}
}

func TestValidate_RejectsOverBcryptLimit(t *testing.T) {
	ok := strings.Repeat("a", MaxPasswordBytes)
	if err := DefaultPasswordOptions().Validate(ok); err != nil {
		t.Errorf("72 bytes should be accepted, got %v", err)
	}

	for _, pw := range []string{
		strings.Repeat("a", MaxPasswordBytes+1),
		strings.Repeat("ç", 37), // 37 runes, 74 bytes
	} {
		err := DefaultPasswordOptions().Validate(pw)
		var pe *PasswordError
		if !errors.As(err, &pe) || !errors.Is(err, ErrPasswordTooLong) {
			t.Errorf("len %d bytes: expected ErrPasswordTooLong, got %v", len(pw), err)
		}
	}

	if err := (PasswordOptions{}).Validate(strings.Repeat("x", 100)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("zero policy must still cap length, got %v", err)
	}
}

func TestCheckPasswordMissingUser_HashesAtManagerCost(t *testing.T) {
	m := NewUserManager(nil, DefaultPasswordOptions(), zap.NewNop())
	m.SetHashCost(bcrypt.MinCost)

	if m.CheckPasswordMissingUser("abcdefgh") {
		t.Fatal("a missing user must never verify")
	}
	cost, err := bcrypt.Cost(m.dummy)
	if err != nil {
		t.Fatalf("dummy hash: %v", err)
	}
	if cost != bcrypt.MinCost {
		t.Errorf("dummy hash cost: got %d, want %d", cost, bcrypt.MinCost)
	}
}
