package storage

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var handlePattern = regexp.MustCompile(`^\d{4}/\d{2}/[0-9a-f]{32}(\.[a-z0-9]{1,10})?$`)

func TestNewHandle(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantExt string
	}{
		{"simple", "photo.jpg", ".jpg"},
		{"uppercase", "PHOTO.JPG", ".jpg"},
		{"no extension", "README", ""},
		{"windows path", `C:\Users\me\doc.pdf`, ".pdf"},
		{"unix path", "../../etc/passwd", ""},
		{"odd extension", "archive.tar.gz", ".gz"},
		{"extension too long", "file.abcdefghijkl", ""},
		{"extension with symbols", "file.p$p", ""},
		{"unicode", "bericht-über.txt", ".txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle, err := NewHandle(tt.input)
			require.NoError(t, err)
			assert.Regexp(t, handlePattern, handle)
			assert.NoError(t, ValidateHandle(handle))
			if tt.wantExt == "" {
				assert.Len(t, StoredName(handle), 32)
			} else {
				assert.Equal(t, tt.wantExt, StoredName(handle)[32:])
			}
		})
	}
}

func TestValidateHandle(t *testing.T) {
	tests := []struct {
		handle  string
		wantErr bool
	}{
		{"2024/05/abc.txt", false},
		{"abc", false},
		{"", true},
		{"/2024/05/abc", true},
		{"2024/../abc", true},
		{"2024/./abc", true},
		{"2024//abc", true},
		{`2024\abc`, true},
		{"abc\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.handle, func(t *testing.T) {
			err := ValidateHandle(tt.handle)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidHandle)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
