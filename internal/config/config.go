package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"sharedrop/internal/database"
	"sharedrop/internal/storage"
)

// ByteSize accepts humanized sizes such as "100MB" or "1GiB".
// Sizes are binary: 1KB = 1KiB = 2^10 bytes and 1MB = 1MiB = 2^20 bytes.
// A bare number is read as megabytes.
type ByteSize int64

var decimalUnit = regexp.MustCompile(`(?i)^([0-9.]+)\s*([kmgtp])b?$`)

func (b *ByteSize) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*b = ByteSize(n * humanize.MiByte)
		return nil
	}
	if m := decimalUnit.FindStringSubmatch(s); m != nil {
		s = m[1] + strings.ToUpper(m[2]) + "iB"
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", string(text), err)
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string { return humanize.IBytes(uint64(b)) }

// Duration is a time.Duration that also understands a "d" suffix for days
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(time.Duration(n) * 24 * time.Hour)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds server configuration
type Config struct {
	Port        int      `env:"PORT" envDefault:"8080"`
	Secret      string   `env:"SECRET,required"` // Secret key for JWT signing
	Env         string   `env:"APP_ENV" envDefault:"production"`
	LogLevel    string   `env:"LOG_LEVEL"` // Overrides the level implied by APP_ENV
	BaseURL     string   `env:"BASE_URL" envDefault:"http://localhost:8080"`
	FrontendURL string   `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	Database DatabaseConfig
	Upload   UploadConfig
	Reaper   ReaperConfig
	Storage  StorageConfig
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	Database string `env:"DB_DATABASE" envDefault:"sharedrop"`
	Username string `env:"DB_USERNAME"`
	Password string `env:"DB_PASSWORD"`
	Schema   string `env:"DB_SCHEMA" envDefault:"public"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	MaxOpenConns    int      `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int      `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

type UploadConfig struct {
	MaxSize            ByteSize `env:"UPLOAD_MAX_SIZE" envDefault:"100MiB"` // Authenticated uploads
	TempMaxSize        ByteSize `env:"TEMP_MAX_SIZE" envDefault:"100MiB"`   // Anonymous uploads
	DeviceLimit        int      `env:"DEVICE_UPLOAD_LIMIT" envDefault:"5"`
	ShareRetention     Duration `env:"SHARE_RETENTION" envDefault:"7d"`
	QuickLinkRetention Duration `env:"QUICKLINK_RETENTION" envDefault:"24h"`
	PublicRatePerMin   int      `env:"PUBLIC_UPLOAD_RATE" envDefault:"20"`
}

type ReaperConfig struct {
	Interval     Duration `env:"REAPER_INTERVAL" envDefault:"1h"`
	SyncInterval Duration `env:"REAPER_SYNC_INTERVAL" envDefault:"24h"`
	OrphanGrace  Duration `env:"REAPER_ORPHAN_GRACE" envDefault:"1h"`
	DeleteRate   float64  `env:"REAPER_DELETE_RATE" envDefault:"20"` // Blob deletes per second
	BatchSize    int      `env:"REAPER_BATCH_SIZE" envDefault:"100"`
}

type StorageConfig struct {
	// Provider type ("local", "gcs" or "s3")
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"local"`
	LocalPath string `env:"UPLOAD_DIR" envDefault:"./uploads"`

	ProjectID       string `env:"GCS_PROJECT_ID"`
	BucketName      string `env:"GCS_BUCKET_NAME"`
	EmulatorHost    string `env:"STORAGE_EMULATOR_HOST"`
	CredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS"`

	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3Region    string `env:"S3_REGION" envDefault:"auto"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3AccessKey string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `env:"S3_SECRET_ACCESS_KEY"`
}

// NewConfig creates a server configuration from environment variables
func NewConfig() (*Config, error) {
	return Load(env.ToMap(os.Environ()))
}

// Load parses the given environment
func Load(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that would make the server misbehave
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT: %d", c.Port))
	}
	if c.Upload.MaxSize <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_SIZE must be positive"))
	}
	if c.Upload.TempMaxSize <= 0 {
		errs = append(errs, errors.New("TEMP_MAX_SIZE must be positive"))
	}
	if c.Upload.PublicRatePerMin <= 0 {
		errs = append(errs, errors.New("PUBLIC_UPLOAD_RATE must be positive"))
	}
	if c.Upload.DeviceLimit <= 0 {
		errs = append(errs, errors.New("DEVICE_UPLOAD_LIMIT must be positive"))
	}
	if c.Upload.ShareRetention <= 0 || c.Upload.QuickLinkRetention <= 0 {
		errs = append(errs, errors.New("retention windows must be positive"))
	}
	if c.Reaper.Interval <= 0 || c.Reaper.SyncInterval <= 0 {
		errs = append(errs, errors.New("reaper intervals must be positive"))
	}
	if c.Reaper.DeleteRate <= 0 {
		errs = append(errs, errors.New("REAPER_DELETE_RATE must be positive"))
	}
	if c.Reaper.BatchSize <= 0 {
		errs = append(errs, errors.New("REAPER_BATCH_SIZE must be positive"))
	}
	if err := validateStorageConfig(c.Storage); err != nil {
		errs = append(errs, fmt.Errorf("invalid storage configuration: %w", err))
	}

	return errors.Join(errs...)
}

// validateStorageConfig ensures the storage configuration is valid
func validateStorageConfig(cfg StorageConfig) error {
	switch cfg.Provider {
	case "local":
		if cfg.LocalPath == "" {
			return fmt.Errorf("UPLOAD_DIR is required for local storage")
		}
	case "gcs":
		if cfg.ProjectID == "" {
			return fmt.Errorf("GCS_PROJECT_ID is required for GCS storage")
		}
		if cfg.BucketName == "" {
			return fmt.Errorf("GCS_BUCKET_NAME is required for GCS storage")
		}
	case "s3":
		if cfg.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for S3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.Env == "development" }

func (c *Config) DBConfig() database.Config {
	return database.Config{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Database: c.Database.Database,
		Username: c.Database.Username,
		Password: c.Database.Password,
		Schema:   c.Database.Schema,
		SSLMode:  c.Database.SSLMode,

		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime.Std(),
	}
}

func (c *Config) BlobConfig() storage.Config {
	return storage.Config{
		Provider:        c.Storage.Provider,
		LocalPath:       c.Storage.LocalPath,
		ProjectID:       c.Storage.ProjectID,
		BucketName:      c.Storage.BucketName,
		EmulatorHost:    c.Storage.EmulatorHost,
		CredentialsJSON: c.Storage.CredentialsJSON,
		S3Endpoint:      c.Storage.S3Endpoint,
		S3Region:        c.Storage.S3Region,
		S3Bucket:        c.Storage.S3Bucket,
		S3AccessKey:     c.Storage.S3AccessKey,
		S3SecretKey:     c.Storage.S3SecretKey,
	}
}

func (c *Config) Log() {
	log.Info().
		Int("port", c.Port).
		Str("env", c.Env).
		Str("base_url", c.BaseURL).
		Str("frontend_url", c.FrontendURL).
		Str("upload_max_size", c.Upload.MaxSize.String()).
		Str("temp_max_size", c.Upload.TempMaxSize.String()).
		Int("device_upload_limit", c.Upload.DeviceLimit).
		Dur("share_retention", c.Upload.ShareRetention.Std()).
		Dur("quicklink_retention", c.Upload.QuickLinkRetention.Std()).
		Dur("reaper_interval", c.Reaper.Interval.Std()).
		Str("storage_provider", c.Storage.Provider).
		Msg("server configuration")
}
