package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// NewHandle builds a collision resistant handle of the form
// yyyy/mm/<32 hex chars><ext>. The extension is kept only when it is
// short and alphanumeric; the client supplied name never reaches the path.
func NewHandle(suggestedName string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate handle: %w", err)
	}
	now := time.Now().UTC()
	return fmt.Sprintf("%04d/%02d/%s%s", now.Year(), int(now.Month()), hex.EncodeToString(b), safeExt(suggestedName)), nil
}

// StoredName is the final path element of a handle
func StoredName(handle string) string {
	return path.Base(handle)
}

func safeExt(name string) string {
	// Clients on Windows send backslash separated names
	name = name[strings.LastIndexAny(name, `/\`)+1:]
	ext := strings.ToLower(path.Ext(name))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}

// ValidateHandle rejects handles that could escape the store root
func ValidateHandle(handle string) error {
	if handle == "" ||
		strings.HasPrefix(handle, "/") ||
		strings.Contains(handle, `\`) ||
		strings.Contains(handle, "\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	for _, part := range strings.Split(handle, "/") {
		if part == ".." || part == "." || part == "" {
			return fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
		}
	}
	return nil
}
