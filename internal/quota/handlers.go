package quota

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sharedrop/internal/apperr"
	"sharedrop/internal/httpx"
	"sharedrop/internal/validation"
)

type Handler struct {
	tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

type DeviceCountResponse struct {
	UploadCount  int        `json:"uploadCount"`
	LastUploadAt *time.Time `json:"lastUploadAt,omitempty"`
	Limit        int        `json:"limit"`
	Remaining    int        `json:"remaining"`
}

// HandleDeviceCount handles GET /api/temp/device-count/{deviceToken}
func (h *Handler) HandleDeviceCount(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "deviceToken")
	if err := validation.ValidateToken(token); err != nil {
		httpx.WriteError(w, r, apperr.Validation("quota.DeviceCount", "Invalid device token"))
		return
	}

	q, err := h.tracker.Get(r.Context(), token)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, DeviceCountResponse{
		UploadCount:  q.UploadCount,
		LastUploadAt: q.LastUploadAt,
		Limit:        h.tracker.Ceiling(),
		Remaining:    max(h.tracker.Ceiling()-q.UploadCount, 0),
	})
}
