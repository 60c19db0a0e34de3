package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"sharedrop/internal/auth"
	"sharedrop/internal/models"
	"sharedrop/internal/tempfiles"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	if s.config.IsDevelopment() {
		r.Use(middleware.NoCache)
	}

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", tempfiles.DeviceTokenHeader},
		ExposedHeaders:   []string{"Content-Disposition", "Content-Length", tempfiles.DeviceTokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(auth.Verifier(s.authService.GetAuth()))

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Get("/health", s.healthHandler)

	uploadLimit := httprate.LimitByIP(s.config.Upload.PublicRatePerMin, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(httprate.LimitByIP(20, time.Minute))
			r.Post("/register", s.userHandler.HandleRegister)
			r.Post("/login", s.userHandler.HandleLogin)
			r.Post("/logout", s.userHandler.HandleLogout)
		})

		r.With(auth.RequireUser).Get("/dashboard", s.dashHandler.HandleGetStats)

		// Device quota tracked shares
		r.Route("/temp", func(r chi.Router) {
			r.With(uploadLimit).Post("/upload", s.tempHandler.HandleShareUpload)
			r.Get("/info/{shareToken}", s.tempHandler.HandleInfo(models.ProductShare, "shareToken"))
			r.Get("/download/{shareToken}", s.tempHandler.HandleDownload(models.ProductShare, "shareToken"))
			r.Get("/device-count/{deviceToken}", s.quotaHandler.HandleDeviceCount)
		})

		r.Route("/files", func(r chi.Router) {
			// Quick links
			r.With(uploadLimit).Post("/temp-upload", s.tempHandler.HandleQuickLinkUpload)
			r.Get("/temp/{id}", s.tempHandler.HandleInfo(models.ProductQuickLink, "id"))
			r.Get("/temp/{id}/download", s.tempHandler.HandleDownload(models.ProductQuickLink, "id"))

			// Public share links
			r.Get("/shared/{shareId}", s.fileHandler.HandleSharedInfo)
			r.Get("/shared/{shareId}/download", s.fileHandler.HandleSharedDownload)

			// Owned files
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireUser)

				r.Post("/upload", s.fileHandler.HandleUpload)
				r.Get("/", s.fileHandler.HandleList)
				r.Get("/shared-with-me", s.fileHandler.HandleSharedWithMe)
				r.Get("/{id}", s.fileHandler.HandleGet())
				r.Delete("/{id}", s.fileHandler.HandleDelete())
				r.Get("/{id}/download", s.fileHandler.HandleDownload())
				r.Post("/{id}/share", s.fileHandler.HandleShare())
				r.Delete("/{id}/share", s.fileHandler.HandleUnshare())
				r.Post("/{id}/share-with-users", s.fileHandler.HandleShareWithUsers())
			})
		})
	})

	return r
}
