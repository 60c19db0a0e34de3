package files

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sharedrop/internal/apperr"
	userctx "sharedrop/internal/context"
	"sharedrop/internal/httpx"
)

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

func principal(r *http.Request, op string) (uuid.UUID, error) {
	user := userctx.GetUserFromContext(r.Context())
	if user == nil {
		return uuid.Nil, apperr.Unauthorized(op, "Authentication required")
	}
	return user.ID, nil
}

func fileID(r *http.Request, op string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.Validation(op, "Invalid file id")
	}
	return id, nil
}

// withFile resolves the principal and the {id} parameter before calling fn
func withFile(op string, fn func(w http.ResponseWriter, r *http.Request, id, user uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := principal(r, op)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		id, err := fileID(r, op)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		fn(w, r, id, user)
	}
}

// HandleUpload handles POST /api/files/upload. An optional "filename"
// form value overrides the multipart file name.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "files.HandleUpload"

	owner, err := principal(r, op)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	upload, err := httpx.ReadUpload(w, r, op, h.service.MaxSize())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	defer upload.Close()

	filename := upload.Filename
	if name := r.FormValue("filename"); name != "" {
		filename = name
	}

	file, err := h.service.Upload(r.Context(), &UploadRequest{
		Body:     upload.File,
		Filename: filename,
		MimeType: upload.MimeType,
		Size:     upload.Size,
		OwnerID:  owner,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, h.urls.toResponse(file))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	owner, err := principal(r, "files.HandleList")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	files, err := h.service.ListOwned(r.Context(), owner)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.urls.toResponses(files))
}

func (h *Handler) HandleSharedWithMe(w http.ResponseWriter, r *http.Request) {
	user, err := principal(r, "files.HandleSharedWithMe")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	files, err := h.service.ListSharedWithMe(r.Context(), user)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.urls.toResponses(files))
}

func (h *Handler) HandleGet() http.HandlerFunc {
	return withFile("files.HandleGet", func(w http.ResponseWriter, r *http.Request, id, user uuid.UUID) {
		file, err := h.service.GetDetails(r.Context(), id, user)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, h.urls.toResponse(file))
	})
}

func (h *Handler) HandleDownload() http.HandlerFunc {
	return withFile("files.HandleDownload", func(w http.ResponseWriter, r *http.Request, id, user uuid.UUID) {
		d, err := h.service.Download(r.Context(), id, user)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.ServeDownload(w, r, d)
	})
}

func (h *Handler) HandleDelete() http.HandlerFunc {
	return withFile("files.HandleDelete", func(w http.ResponseWriter, r *http.Request, id, user uuid.UUID) {
		if err := h.service.Delete(r.Context(), id, user); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (h *Handler) HandleShare() http.HandlerFunc {
	return withFile("files.HandleShare", func(w http.ResponseWriter, r *http.Request, id, user uuid.UUID) {
		file, err := h.service.IssueShareLink(r.Context(), id, user)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ShareResponse{
			ShareID:  *file.ShareID,
			ShareURL: h.urls.Share(*file.ShareID),
		})
	})
}

func (h *Handler) HandleUnshare() http.HandlerFunc {
	return withFile("files.HandleUnshare", func(w http.ResponseWriter, r *http.Request, id, user uuid.UUID) {
		file, err := h.service.RevokeShareLink(r.Context(), id, user)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, h.urls.toResponse(file))
	})
}

func (h *Handler) HandleShareWithUsers() http.HandlerFunc {
	const op = "files.HandleShareWithUsers"
	return withFile(op, func(w http.ResponseWriter, r *http.Request, id, user uuid.UUID) {
		var req GrantAccessRequest
		if !httpx.DecodeJSON(w, r, op, &req) {
			return
		}
		shared, err := h.service.GrantAccess(r.Context(), id, user, req.UserIDs)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, GrantAccessResponse{SharedWith: shared})
	})
}

// HandleSharedInfo handles GET /api/files/shared/{shareId}
func (h *Handler) HandleSharedInfo(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareId")
	file, err := h.service.Resolve(r.Context(), shareID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, SharedFileResponse{
		Filename:      file.Filename,
		MimeType:      file.MimeType,
		Size:          file.Size,
		DownloadCount: file.DownloadCount,
		DownloadURL:   h.urls.SharedDownload(shareID),
		CreatedAt:     file.CreatedAt,
	})
}

// HandleSharedDownload handles GET /api/files/shared/{shareId}/download
func (h *Handler) HandleSharedDownload(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.DownloadShared(r.Context(), chi.URLParam(r, "shareId"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.ServeDownload(w, r, d)
}
