package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User represents an account in the user directory
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FileRecord is a permanent file owned by a user.
// IsPublic implies ShareID is set; ShareID is kept after a revoke.
type FileRecord struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Filename      string    `db:"filename" json:"filename"` // Display name supplied by the client, untrusted
	StoredName    string    `db:"stored_name" json:"-"`     // System generated, collision resistant
	BlobHandle    string    `db:"blob_handle" json:"-"`     // Location in the blob store
	MimeType      string    `db:"mime_type" json:"mimetype"`
	Size          int64     `db:"size" json:"size"` // Bytes actually written to the blob store
	OwnerID       uuid.UUID `db:"owner_id" json:"owner"`
	ShareID       *string   `db:"share_id" json:"shareId,omitempty"`
	IsPublic      bool      `db:"is_public" json:"isPublic"`
	DownloadCount int64     `db:"download_count" json:"downloadCount"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`

	// Principals granted read access, loaded on demand
	SharedWith []uuid.UUID `db:"-" json:"sharedWith,omitempty"`
}

// IsOwnedBy reports whether id owns the file
func (f *FileRecord) IsOwnedBy(id uuid.UUID) bool {
	return id != uuid.Nil && f.OwnerID == id
}

// Product distinguishes the two anonymous upload offerings.
type Product int

const (
	// ProductShare is the device-quota tracked share with a long retention window
	ProductShare Product = iota
	// ProductQuickLink is the untracked short-lived link
	ProductQuickLink
)

func (p Product) String() string {
	switch p {
	case ProductShare:
		return "share"
	case ProductQuickLink:
		return "quick_link"
	default:
		return fmt.Sprintf("product(%d)", int(p))
	}
}

func ParseProduct(s string) (Product, error) {
	switch s {
	case "share":
		return ProductShare, nil
	case "quick_link":
		return ProductQuickLink, nil
	default:
		return ProductShare, fmt.Errorf("invalid product: %s", s)
	}
}

// Value implements the driver.Valuer interface for database/sql
func (p Product) Value() (driver.Value, error) {
	if p != ProductShare && p != ProductQuickLink {
		return nil, fmt.Errorf("invalid product: %d", int(p))
	}
	return p.String(), nil
}

// Scan implements the sql.Scanner interface for database/sql
func (p *Product) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return fmt.Errorf("product cannot be nil")
	default:
		return fmt.Errorf("cannot scan %T into Product", value)
	}
	parsed, err := ParseProduct(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// TempFileRecord is an anonymous, time-boxed file. Content is immutable;
// only DownloadCount changes until the record is purged.
type TempFileRecord struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Product       Product   `db:"product" json:"product"`
	Filename      string    `db:"filename" json:"filename"`
	StoredName    string    `db:"stored_name" json:"-"`
	BlobHandle    string    `db:"blob_handle" json:"-"`
	MimeType      string    `db:"mime_type" json:"mimetype"`
	Size          int64     `db:"size" json:"size"`
	DeviceToken   string    `db:"device_token" json:"-"`
	ShareToken    string    `db:"share_token" json:"-"`
	DownloadCount int64     `db:"download_count" json:"downloadCount"`
	ExpiresAt     time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Expired reports whether the record is inaccessible at now.
func (t *TempFileRecord) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// DeviceQuota tracks anonymous uploads per device token.
// LastUploadAt stays nil until the first accepted upload.
type DeviceQuota struct {
	DeviceToken  string     `db:"device_token" json:"deviceToken"`
	UploadCount  int        `db:"upload_count" json:"uploadCount"`
	LastUploadAt *time.Time `db:"last_upload_at" json:"lastUploadAt,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"-"`
}
