// internal/app/system/inputval/inputval.go
package inputval

import (
	"net/mail"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError is one failed rule, phrased for the client.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects every failed rule of one Validate call.
type Result struct {
	Errors []FieldError `json:"errors"`
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("email", func(fl validator.FieldLevel) bool {
			return IsValidEmail(fl.Field().String())
		})
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return IsValidUserName(fl.Field().String())
		})
	})
	return validate
}

// Validate checks s against its `validate` tags. Messages use the field's
// `label` tag when present.
func Validate(s any) *Result {
	res := &Result{}
	err := getValidator().Struct(s)
	if err == nil {
		return res
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.Errors = append(res.Errors, FieldError{Message: "Invalid input."})
		return res
	}

	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for _, fe := range verrs {
		label := fe.Field()
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if l := sf.Tag.Get("label"); l != "" {
				label = l
			}
		}
		res.Errors = append(res.Errors, FieldError{
			Field:   fe.Field(),
			Message: message(label, fe),
		})
	}
	return res
}

func message(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "min":
		return label + " must be at least " + fe.Param() + " characters."
	case "max":
		return label + " must be at most " + fe.Param() + " characters."
	case "username":
		return label + " may only contain letters, digits and - . _ @ +"
	default:
		return label + " is invalid."
	}
}

// userNameExtra are the non-alphanumeric characters allowed in user names.
const userNameExtra = "-._@+"

// IsValidUserName reports whether s is non-empty and uses only ASCII letters,
// digits and -._@+.
func IsValidUserName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune(userNameExtra, r):
		default:
			return false
		}
	}
	return true
}

// IsValidEmail accepts a bare addr-spec (no display name). Single-label
// domains such as "localhost" are allowed.
func IsValidEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n<>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	local, domain := s[:at], s[at+1:]
	if !dotSeparated(local) {
		return false
	}
	return dotSeparated(domain)
}

func dotSeparated(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
	}
	return true
}
