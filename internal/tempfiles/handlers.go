package tempfiles

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sharedrop/internal/httpx"
	"sharedrop/internal/models"
)

const DeviceTokenHeader = "Device-Token"

type ShareUploadResponse struct {
	DeviceToken string    `json:"deviceToken"`
	ShareURL    string    `json:"shareUrl"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type QuickLinkResponse struct {
	TempLink  string    `json:"tempLink"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// InfoResponse is the metadata view of a live temp file
type InfoResponse struct {
	Filename      string    `json:"filename"`
	MimeType      string    `json:"mimetype"`
	Size          int64     `json:"size"`
	DownloadCount int64     `json:"downloadCount"`
	ExpiresAt     time.Time `json:"expiresAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

// URLs builds the links returned for each product
type URLs struct {
	BaseURL     string
	FrontendURL string
}

func (u URLs) Share(shareToken string) string {
	return u.BaseURL + "/api/temp/download/" + shareToken
}

func (u URLs) QuickLink(id string) string {
	return u.FrontendURL + "/temp/" + id
}

type Handler struct {
	service *Service
	urls    URLs
}

func NewHandler(service *Service, urls URLs) *Handler {
	return &Handler{
		service: service,
		urls:    urls,
	}
}

func (h *Handler) readRequest(w http.ResponseWriter, r *http.Request, op string) (*httpx.Upload, *UploadRequest, error) {
	upload, err := httpx.ReadUpload(w, r, op, h.service.MaxSize())
	if err != nil {
		return nil, nil, err
	}

	deviceToken := r.Header.Get(DeviceTokenHeader)
	if deviceToken == "" {
		deviceToken = r.FormValue("deviceToken")
	}

	return upload, &UploadRequest{
		Body:        upload.File,
		Filename:    upload.Filename,
		MimeType:    upload.MimeType,
		Size:        upload.Size,
		DeviceToken: deviceToken,
	}, nil
}

// HandleShareUpload handles POST /api/temp/upload
func (h *Handler) HandleShareUpload(w http.ResponseWriter, r *http.Request) {
	upload, req, err := h.readRequest(w, r, "tempfiles.HandleShareUpload")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	defer upload.Close()

	res, err := h.service.UploadShare(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	w.Header().Set(DeviceTokenHeader, res.DeviceToken)
	httpx.WriteJSON(w, http.StatusCreated, ShareUploadResponse{
		DeviceToken: res.DeviceToken,
		ShareURL:    h.urls.Share(res.File.ShareToken),
		Filename:    res.File.Filename,
		Size:        res.File.Size,
		ExpiresAt:   res.File.ExpiresAt,
	})
}

// HandleQuickLinkUpload handles POST /api/files/temp-upload
func (h *Handler) HandleQuickLinkUpload(w http.ResponseWriter, r *http.Request) {
	upload, req, err := h.readRequest(w, r, "tempfiles.HandleQuickLinkUpload")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	defer upload.Close()

	file, err := h.service.UploadQuickLink(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, QuickLinkResponse{
		TempLink:  h.urls.QuickLink(file.ShareToken),
		ExpiresAt: file.ExpiresAt,
	})
}

// HandleInfo serves metadata for the product, reading the token from param
func (h *Handler) HandleInfo(product models.Product, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, err := h.service.Info(r.Context(), product, chi.URLParam(r, param))
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, InfoResponse{
			Filename:      file.Filename,
			MimeType:      file.MimeType,
			Size:          file.Size,
			DownloadCount: file.DownloadCount,
			ExpiresAt:     file.ExpiresAt,
			CreatedAt:     file.CreatedAt,
		})
	}
}

// HandleDownload streams the product's blob, reading the token from param
func (h *Handler) HandleDownload(product models.Product, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.service.Download(r.Context(), product, chi.URLParam(r, param))
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.ServeDownload(w, r, d)
	}
}
