package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name:    "Defaults",
			envVars: map[string]string{"SECRET": "mysecret"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Port)
				assert.Equal(t, "production", cfg.Env)
				assert.Equal(t, ByteSize(100<<20), cfg.Upload.MaxSize)
				assert.Equal(t, ByteSize(104_857_600), cfg.Upload.TempMaxSize)
				assert.Equal(t, 20, cfg.Upload.PublicRatePerMin)
				assert.Equal(t, 5, cfg.Upload.DeviceLimit)
				assert.Equal(t, 7*24*time.Hour, cfg.Upload.ShareRetention.Std())
				assert.Equal(t, 24*time.Hour, cfg.Upload.QuickLinkRetention.Std())
				assert.Equal(t, "local", cfg.Storage.Provider)
				assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
			},
		},
		{
			name: "Valid configuration",
			envVars: map[string]string{
				"PORT":                "9000",
				"SECRET":              "mysecret",
				"APP_ENV":             "development",
				"BASE_URL":            "https://drop.example.com",
				"UPLOAD_MAX_SIZE":     "1GiB",
				"TEMP_MAX_SIZE":       "25",
				"DEVICE_UPLOAD_LIMIT": "3",
				"SHARE_RETENTION":     "3d",
				"QUICKLINK_RETENTION": "90m",
				"CORS_ORIGINS":        "https://a.example.com,https://b.example.com",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Port)
				assert.True(t, cfg.IsDevelopment())
				assert.Equal(t, ByteSize(1<<30), cfg.Upload.MaxSize)
				assert.Equal(t, ByteSize(25<<20), cfg.Upload.TempMaxSize)
				assert.Equal(t, 3, cfg.Upload.DeviceLimit)
				assert.Equal(t, 72*time.Hour, cfg.Upload.ShareRetention.Std())
				assert.Equal(t, 90*time.Minute, cfg.Upload.QuickLinkRetention.Std())
				assert.Len(t, cfg.CORSOrigins, 2)
			},
		},
		{
			name: "Decimal suffixes are binary",
			envVars: map[string]string{
				"SECRET":          "mysecret",
				"UPLOAD_MAX_SIZE": "100MB",
				"TEMP_MAX_SIZE":   "512kb",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ByteSize(100<<20), cfg.Upload.MaxSize)
				assert.Equal(t, ByteSize(512<<10), cfg.Upload.TempMaxSize)
			},
		},
		{
			name:    "Missing SECRET",
			envVars: map[string]string{"PORT": "8080"},
			wantErr: true,
		},
		{
			name:    "Invalid PORT",
			envVars: map[string]string{"SECRET": "s", "PORT": "-1"},
			wantErr: true,
		},
		{
			name:    "Invalid size",
			envVars: map[string]string{"SECRET": "s", "TEMP_MAX_SIZE": "lots"},
			wantErr: true,
		},
		{
			name:    "Invalid retention",
			envVars: map[string]string{"SECRET": "s", "SHARE_RETENTION": "xd"},
			wantErr: true,
		},
		{
			name:    "Zero public upload rate",
			envVars: map[string]string{"SECRET": "s", "PUBLIC_UPLOAD_RATE": "0"},
			wantErr: true,
		},
		{
			name:    "Negative public upload rate",
			envVars: map[string]string{"SECRET": "s", "PUBLIC_UPLOAD_RATE": "-5"},
			wantErr: true,
		},
		{
			name:    "Zero device limit",
			envVars: map[string]string{"SECRET": "s", "DEVICE_UPLOAD_LIMIT": "0"},
			wantErr: true,
		},
		{
			name:    "GCS without bucket",
			envVars: map[string]string{"SECRET": "s", "STORAGE_PROVIDER": "gcs", "GCS_PROJECT_ID": "p"},
			wantErr: true,
		},
		{
			name:    "S3 without bucket",
			envVars: map[string]string{"SECRET": "s", "STORAGE_PROVIDER": "s3"},
			wantErr: true,
		},
		{
			name:    "Unknown provider",
			envVars: map[string]string{"SECRET": "s", "STORAGE_PROVIDER": "ftp"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.envVars)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestDBConfig(t *testing.T) {
	cfg, err := Load(map[string]string{
		"SECRET":               "s",
		"DB_HOST":              "db",
		"DB_USERNAME":          "drop",
		"DB_SSLMODE":           "require",
		"DB_MAX_OPEN_CONNS":    "50",
		"DB_CONN_MAX_LIFETIME": "1h",
	})
	require.NoError(t, err)

	db := cfg.DBConfig()
	assert.Equal(t, "db", db.Host)
	assert.Equal(t, "sharedrop", db.Database)
	assert.Equal(t, "require", db.SSLMode)
	assert.Equal(t, 50, db.MaxOpenConns)
	assert.Equal(t, 5, db.MaxIdleConns)
	assert.Equal(t, time.Hour, db.ConnMaxLifetime)
	assert.Contains(t, db.DSN(), "sslmode=require")
}

func TestBlobConfig(t *testing.T) {
	cfg, err := Load(map[string]string{
		"SECRET":           "s",
		"STORAGE_PROVIDER": "s3",
		"S3_BUCKET":        "drops",
		"S3_ENDPOINT":      "http://minio:9000",
	})
	require.NoError(t, err)

	blob := cfg.BlobConfig()
	assert.Equal(t, "s3", blob.Provider)
	assert.Equal(t, "drops", blob.S3Bucket)
	assert.Equal(t, "http://minio:9000", blob.S3Endpoint)
}

func TestByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    ByteSize
		wantErr bool
	}{
		{in: "100", want: 100 << 20},
		{in: "100MB", want: 104_857_600},
		{in: "100MiB", want: 104_857_600},
		{in: "100 mb", want: 100 << 20},
		{in: "512K", want: 512 << 10},
		{in: "1GB", want: 1 << 30},
		{in: "1.5GiB", want: 3 << 29},
		{in: "2048B", want: 2048},
		{in: "lots", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var b ByteSize
			err := b.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, b)
		})
	}
}
