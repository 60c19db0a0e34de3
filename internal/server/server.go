package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"sharedrop/internal/auth"
	"sharedrop/internal/config"
	"sharedrop/internal/dashboard"
	"sharedrop/internal/database"
	"sharedrop/internal/files"
	"sharedrop/internal/quota"
	"sharedrop/internal/storage"
	"sharedrop/internal/tempfiles"
	"sharedrop/internal/user"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and its dependencies
type Server struct {
	config      *config.Config
	db          *database.DB
	authService auth.Service

	userHandler  *user.Handler
	fileHandler  *files.Handler
	tempHandler  *tempfiles.Handler
	quotaHandler *quota.Handler
	dashHandler  *dashboard.Handler

	tempService *tempfiles.Service
	worker      *tempfiles.CleanupWorker
}

// NewServer wires repositories, services and handlers
func NewServer(cfg *config.Config, db *database.DB, blobs storage.Provider) (*Server, error) {
	// Initialize repositories
	userRepo := user.NewRepository(db)
	fileRepo := files.NewRepository(db)
	tempRepo := tempfiles.NewRepository(db)
	quotaRepo := quota.NewRepository(db)
	dashRepo := dashboard.NewRepository(db)

	authService, err := auth.NewService(cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("creating auth service: %w", err)
	}

	tracker, err := quota.NewTracker(quotaRepo, cfg.Upload.DeviceLimit)
	if err != nil {
		return nil, fmt.Errorf("creating quota tracker: %w", err)
	}

	userService := user.NewService(userRepo)
	fileService := files.NewService(fileRepo, blobs, userService, int64(cfg.Upload.MaxSize))
	tempService := tempfiles.NewService(tempRepo, blobs, tracker, tempfiles.Options{
		MaxSize:            int64(cfg.Upload.TempMaxSize),
		ShareRetention:     cfg.Upload.ShareRetention.Std(),
		QuickLinkRetention: cfg.Upload.QuickLinkRetention.Std(),
		BatchSize:          cfg.Reaper.BatchSize,
		DeleteRate:         cfg.Reaper.DeleteRate,
		OrphanGrace:        cfg.Reaper.OrphanGrace.Std(),
	})

	return &Server{
		config:       cfg,
		db:           db,
		authService:  authService,
		userHandler:  user.NewHandler(userService, authService),
		fileHandler:  files.NewHandler(fileService, files.URLs{BaseURL: cfg.BaseURL, FrontendURL: cfg.FrontendURL}),
		tempHandler:  tempfiles.NewHandler(tempService, tempfiles.URLs{BaseURL: cfg.BaseURL, FrontendURL: cfg.FrontendURL}),
		quotaHandler: quota.NewHandler(tracker),
		dashHandler:  dashboard.NewHandler(dashboard.NewService(dashRepo)),
		tempService:  tempService,
		worker:       tempfiles.NewCleanupWorker(tempService, cfg.Reaper.Interval.Std(), cfg.Reaper.SyncInterval.Std()),
	}, nil
}

// Start builds the HTTP server
func (s *Server) Start() *http.Server {
	return &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.RegisterRoutes(),
		IdleTimeout: time.Minute,
		ReadTimeout: 10 * time.Minute, // Large uploads on slow links
		// No WriteTimeout, downloads may run for a long time
	}
}

// Run serves HTTP and runs the cleanup worker until ctx is canceled, then
// shuts both down.
func (s *Server) Run(ctx context.Context) error {
	httpServer := s.Start()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.worker.Start(gctx)
		<-gctx.Done()
		s.worker.Stop()
		return nil
	})

	g.Go(func() error {
		log.Info().
			Int("port", s.config.Port).
			Str("url", s.config.BaseURL).
			Msg("server is ready to handle requests")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		httpServer.SetKeepAlivesEnabled(false)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Sweep runs one reaper pass without serving
func (s *Server) Sweep(ctx context.Context) error {
	swept, err := s.tempService.Sweep(ctx)
	if err != nil {
		return err
	}
	orphans, err := s.tempService.SyncStorage(ctx)
	if err != nil {
		return err
	}
	log.Info().
		Int("expired", swept).
		Int("orphans", orphans).
		Msg("sweep completed")
	return nil
}
