package files

import (
	"time"

	"github.com/google/uuid"

	"sharedrop/internal/models"
)

// FileResponse is the client view of a FileRecord
type FileResponse struct {
	ID            uuid.UUID   `json:"id"`
	Filename      string      `json:"filename"`
	MimeType      string      `json:"mimetype"`
	Size          int64       `json:"size"`
	URL           string      `json:"url"`
	DownloadCount int64       `json:"downloadCount"`
	ShareID       *string     `json:"shareId,omitempty"`
	ShareURL      string      `json:"shareUrl,omitempty"`
	IsPublic      bool        `json:"isPublic"`
	Owner         uuid.UUID   `json:"owner"`
	SharedWith    []uuid.UUID `json:"sharedWith,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

type ShareResponse struct {
	ShareID  string `json:"shareId"`
	ShareURL string `json:"shareUrl"`
}

type GrantAccessRequest struct {
	UserIDs []uuid.UUID `json:"userIds" validate:"required,min=1,max=100"`
}

type GrantAccessResponse struct {
	SharedWith []uuid.UUID `json:"sharedWith"`
}

// SharedFileResponse is what anonymous callers see of a public file
type SharedFileResponse struct {
	Filename      string    `json:"filename"`
	MimeType      string    `json:"mimetype"`
	Size          int64     `json:"size"`
	DownloadCount int64     `json:"downloadCount"`
	DownloadURL   string    `json:"downloadUrl"`
	CreatedAt     time.Time `json:"createdAt"`
}

// URLs builds the absolute links handed back to clients
type URLs struct {
	BaseURL     string
	FrontendURL string
}

func (u URLs) Download(id uuid.UUID) string {
	return u.BaseURL + "/api/files/" + id.String() + "/download"
}

func (u URLs) Share(shareID string) string {
	return u.FrontendURL + "/share/" + shareID
}

func (u URLs) SharedDownload(shareID string) string {
	return u.BaseURL + "/api/files/shared/" + shareID + "/download"
}

func (u URLs) toResponse(f *models.FileRecord) *FileResponse {
	resp := &FileResponse{
		ID:            f.ID,
		Filename:      f.Filename,
		MimeType:      f.MimeType,
		Size:          f.Size,
		URL:           u.Download(f.ID),
		DownloadCount: f.DownloadCount,
		ShareID:       f.ShareID,
		IsPublic:      f.IsPublic,
		Owner:         f.OwnerID,
		SharedWith:    f.SharedWith,
		CreatedAt:     f.CreatedAt,
	}
	if f.IsPublic && f.ShareID != nil {
		resp.ShareURL = u.Share(*f.ShareID)
	}
	return resp
}

func (u URLs) toResponses(files []*models.FileRecord) []*FileResponse {
	out := make([]*FileResponse, len(files))
	for i, f := range files {
		out[i] = u.toResponse(f)
	}
	return out
}
