// Package dbtest starts a throwaway postgres for package level tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"sharedrop/internal/database"
	"sharedrop/internal/database/migrate"
)

// MustStartPostgresContainer runs a postgres container and returns its
// connection settings together with the teardown func.
func MustStartPostgresContainer() (database.Config, func(context.Context) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "testpass"
		dbUser = "testuser"
	)
	ctx := context.Background()

	dbContainer, err := postgres.Run(
		ctx,
		"postgres:latest",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		log.Error().
			Err(err).
			Msg("failed to start postgres container")
		return database.Config{}, nil, err
	}

	dbHost, err := dbContainer.Host(ctx)
	if err != nil {
		return database.Config{}, dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return database.Config{}, dbContainer.Terminate, err
	}

	log.Info().
		Str("host", dbHost).
		Str("port", dbPort.Port()).
		Msg("postgres container started successfully")

	return database.Config{
		Host:     dbHost,
		Port:     dbPort.Port(),
		Database: dbName,
		Username: dbUser,
		Password: dbPwd,
		Schema:   "public",
	}, dbContainer.Terminate, nil
}

// Setup connects, applies migrations and empties every table so each
// test starts from a clean schema.
func Setup(t *testing.T, cfg database.Config) *database.DB {
	t.Helper()

	db, err := database.New(cfg)
	require.NoError(t, err)

	require.NoError(t, migrate.RunMigrations(db.DB))

	_, err = db.Exec(`TRUNCATE users, files, file_shares, temp_files, device_uploads CASCADE`)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})
	return db
}
