package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sharedrop/internal/config"
	"sharedrop/internal/database"
	"sharedrop/internal/database/migrate"
	"sharedrop/internal/logger"
	"sharedrop/internal/server"
	"sharedrop/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "version":
		fmt.Printf("sharedrop %s\n", formatVersionInfo())
		return
	case "serve", "sweep":
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (expected serve, sweep or version)\n", command)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Init("development")
		log.Fatal().Err(err).Msg("error loading configuration")
	}

	logger.Setup(logger.Options{Env: cfg.Env, Level: cfg.LogLevel})
	log.Info().
		Str("command", command).
		Str("log_level", zerolog.GlobalLevel().String()).
		Str("version", version).
		Str("commit", commit).
		Str("built", date).
		Msg("starting sharedrop")
	cfg.Log()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, command); err != nil {
		log.Error().Err(err).Msg("sharedrop exited with error")
		os.Exit(1)
	}
	log.Info().Msg("shutdown completed")
}

func run(ctx context.Context, cfg *config.Config, command string) error {
	db, err := database.New(cfg.DBConfig())
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("error closing database connection")
		}
	}()

	if health := db.Health(ctx); health["status"] != "up" {
		return fmt.Errorf("database health check failed: %s", health["error"])
	}

	if err := migrate.RunMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("failed to run migrations")
		log.Info().Msg("attempting to rollback migrations")

		if rbErr := migrate.RollbackMigrations(db.DB); rbErr != nil {
			return fmt.Errorf("rolling back migrations after %v: %w", err, rbErr)
		}
		return fmt.Errorf("migrations rolled back: %w", err)
	}

	blobs, err := storage.NewProvider(ctx, cfg.BlobConfig())
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() {
		if err := blobs.Close(); err != nil {
			log.Error().Err(err).Msg("error closing storage provider")
		}
	}()

	srv, err := server.NewServer(cfg, db, blobs)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if command == "sweep" {
		return srv.Sweep(ctx)
	}
	return srv.Run(ctx)
}

func formatVersionInfo() string {
	return fmt.Sprintf(`Version: %s
Commit: %s
Built: %s`, version, commit, date)
}
