package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules(t *testing.T) {
	tests := []struct {
		rule    string
		check   func(string) error
		valid   []string
		invalid []string
	}{
		{
			rule:    "username",
			check:   ValidateUsername,
			valid:   []string{"john_doe123", "john-doe", "John_Doe-123", "zoë"},
			invalid: []string{"", "jo", strings.Repeat("a", 51), "1john", "john@doe", "_john"},
		},
		{
			rule:    "password",
			check:   ValidatePassword,
			valid:   []string{"TestPass1!", "Test1Pass!@#"},
			invalid: []string{"", "Test1!", "testpass1!", "TESTPASS1!", "TestPass!", "TestPass1"},
		},
		{
			rule:  "token",
			check: ValidateToken,
			valid: []string{
				"abc",
				"9f86d081884c7d659a2feaa0c55ad015",
				"V1StGXR8_Z5jdHi6B-myT0",
				strings.Repeat("a", maxTokenLength),
			},
			invalid: []string{
				"",
				strings.Repeat("a", maxTokenLength+1),
				"../../etc/passwd",
				"abc def ghi",
				"tökentökentöken",
				"bad!",
			},
		},
		{
			rule:    "filename",
			check:   ValidateFilename,
			valid:   []string{"report.pdf", "Übersicht 2024.xlsx", "README", "../not-a-path.txt"},
			invalid: []string{"", "   ", strings.Repeat("a", maxFilenameLength+1), "bad\x00name.txt", "bad\nname.txt", "\xff\xfe.bin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			for _, v := range tt.valid {
				assert.NoError(t, tt.check(v), "%q should be valid", v)
			}
			for _, v := range tt.invalid {
				assert.Error(t, tt.check(v), "%q should be rejected", v)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	type request struct {
		Username string      `json:"username" validate:"required,username"`
		Password string      `validate:"required,password"`
		Device   string      `json:"deviceToken" validate:"required,token"`
		UserIDs  []uuid.UUID `json:"userIds" validate:"required,min=1"`
	}

	err := Validate(&request{
		Username: "1invalid",
		Password: "weak",
		Device:   "not/a/token",
		UserIDs:  []uuid.UUID{},
	})
	require.Error(t, err)

	details := FormatError(err)
	byField := make(map[string]string)
	for _, d := range details {
		byField[d.Field] = d.Error
	}

	assert.Contains(t, byField["username"], "start with a letter")
	assert.Contains(t, byField["password"], "at least 8 characters")
	assert.Contains(t, byField["deviceToken"], "deviceToken must be 1-128 characters")
	assert.Equal(t, "userIds must contain at least 1 items", byField["userIds"])
}

func TestFormatError_OtherErrors(t *testing.T) {
	assert.Nil(t, FormatError(nil))
	assert.Nil(t, FormatError(errors.New("boom")))
}
