// Package token generates the opaque identifiers handed out to clients.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	ShareIDBytes     = 16
	ShareTokenBytes  = 32
	DeviceTokenBytes = 32

	quickLinkCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	quickLinkLength  = 22
)

// Hex returns n random bytes hex encoded
func Hex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func ShareID() (string, error)     { return Hex(ShareIDBytes) }
func ShareToken() (string, error)  { return Hex(ShareTokenBytes) }
func DeviceToken() (string, error) { return Hex(DeviceTokenBytes) }

// QuickLinkID is shorter than a share token so it fits in a pasted URL.
// 22 alphanumeric characters carry about 131 bits.
func QuickLinkID() (string, error) {
	return gonanoid.Generate(quickLinkCharset, quickLinkLength)
}
