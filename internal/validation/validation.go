package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	maxTokenLength    = 128
	maxFilenameLength = 255
)

var validate *validator.Validate

var customRules = map[string]validator.Func{
	"username": validateUsername,
	"password": validatePassword,
	"token":    validateToken,
	"filename": validateFilename,
}

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields under their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	for tag, fn := range customRules {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %s validation: %v", tag, err))
		}
	}
}

// Validate validates a struct using tags
func Validate(s interface{}) error {
	return validate.Struct(s)
}

func ValidateUsername(username string) error {
	return validate.Var(username, "required,username")
}

func ValidatePassword(password string) error {
	return validate.Var(password, "required,password")
}

// ValidateToken checks a device token, share id, share token or quick link id.
// Tokens are opaque; only the alphabet and length are enforced.
func ValidateToken(token string) error {
	return validate.Var(token, "required,token")
}

// ValidateFilename checks a client supplied display name. The name is
// never used as a storage path.
func ValidateFilename(name string) error {
	return validate.Var(name, "required,filename")
}

// validateUsername: 3-50 chars, starts with a letter, then letters,
// digits, underscores or hyphens
func validateUsername(fl validator.FieldLevel) bool {
	username := fl.Field().String()
	if len(username) < 3 || len(username) > 50 {
		return false
	}

	for i, char := range username {
		if i == 0 && !unicode.IsLetter(char) {
			return false
		}
		if !unicode.IsLetter(char) && !unicode.IsNumber(char) && char != '_' && char != '-' {
			return false
		}
	}
	return true
}

// validatePassword: at least 8 chars with upper, lower, digit and symbol
func validatePassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}

	var classes [4]bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			classes[0] = true
		case unicode.IsLower(char):
			classes[1] = true
		case unicode.IsNumber(char):
			classes[2] = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			classes[3] = true
		}
	}
	return classes[0] && classes[1] && classes[2] && classes[3]
}

func validateToken(fl validator.FieldLevel) bool {
	token := fl.Field().String()
	if token == "" || len(token) > maxTokenLength {
		return false
	}
	return strings.IndexFunc(token, func(c rune) bool { return !isTokenRune(c) }) < 0
}

func isTokenRune(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	default:
		return c == '_' || c == '-'
	}
}

func validateFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if strings.TrimSpace(name) == "" || len(name) > maxFilenameLength || !utf8.ValidString(name) {
		return false
	}
	return strings.IndexFunc(name, unicode.IsControl) < 0
}

// ValidationError is one failed field, reported under its JSON name
type ValidationError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

var messages = map[string]func(e validator.FieldError) string{
	"required": func(e validator.FieldError) string { return fmt.Sprintf("%s is required", e.Field()) },
	"email":    func(validator.FieldError) string { return "Invalid email format" },
	"username": func(validator.FieldError) string {
		return "Username must be 3-50 characters long, start with a letter, and contain only letters, numbers, underscores, or hyphens"
	},
	"password": func(validator.FieldError) string {
		return "Password must be at least 8 characters long and contain at least one uppercase letter, one lowercase letter, one number, and one special character"
	},
	"token": func(e validator.FieldError) string {
		return fmt.Sprintf("%s must be 1-%d characters of letters, numbers, underscores, or hyphens", e.Field(), maxTokenLength)
	},
	"filename": func(validator.FieldError) string {
		return fmt.Sprintf("Filename must be 1-%d bytes of printable UTF-8", maxFilenameLength)
	},
	"max": func(e validator.FieldError) string {
		return fmt.Sprintf("%s must contain at most %s items", e.Field(), e.Param())
	},
	"min": func(e validator.FieldError) string {
		return fmt.Sprintf("%s must contain at least %s items", e.Field(), e.Param())
	},
}

// FormatError turns validator errors into per-field messages. Errors of
// any other type yield nil.
func FormatError(err error) []ValidationError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}

	out := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		message := fmt.Sprintf("Invalid value for %s", e.Field())
		if fn, ok := messages[e.Tag()]; ok {
			message = fn(e)
		}
		out = append(out, ValidationError{
			Field: lowerFirst(e.Field()),
			Error: message,
		})
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
