package dashboard

import (
	"net/http"

	"sharedrop/internal/apperr"
	userctx "sharedrop/internal/context"
	"sharedrop/internal/httpx"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	user := userctx.GetUserFromContext(r.Context())
	if user == nil {
		httpx.WriteError(w, r, apperr.Unauthorized("dashboard.HandleGetStats", "Authentication required"))
		return
	}

	stats, err := h.service.GetStats(r.Context(), user.ID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}
