package server

import (
	"net/http"

	"sharedrop/internal/apperr"
	"sharedrop/internal/httpx"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health["status"] != "up" {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Message: "Database unavailable",
			Data:    health,
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: "Health check successful",
		Data:    health,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(w, r, apperr.NotFound("server", "Route not found"))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpx.HandleError(w, &httpx.APIError{
		Code:    "METHOD_NOT_ALLOWED",
		Message: "Method not allowed",
	}, http.StatusMethodNotAllowed)
}
