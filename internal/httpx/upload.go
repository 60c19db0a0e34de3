package httpx

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog/log"

	"sharedrop/internal/apperr"
)

// multipartOverhead allows for boundaries and part headers on top of the
// file itself when bounding the request body.
const multipartOverhead = 1 << 20

const maxMemory = 32 << 20

const FormFileField = "file"

// Upload is a file part read off a multipart request
type Upload struct {
	File     multipart.File
	Filename string
	MimeType string
	Size     int64
}

func (u *Upload) Close() {
	if err := u.File.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing upload")
	}
}

// ReadUpload extracts the file part, rejecting anything larger than maxSize
// before the content reaches the blob store.
func ReadUpload(w http.ResponseWriter, r *http.Request, op string, maxSize int64) (*Upload, error) {
	// Check content length against max size before reading the file
	if r.ContentLength > maxSize+multipartOverhead {
		return nil, apperr.PayloadTooLarge(op, "File exceeds maximum allowed size")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.PayloadTooLarge(op, "File exceeds maximum allowed size")
		}
		return nil, apperr.Validation(op, "Invalid multipart body")
	}

	file, header, err := r.FormFile(FormFileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, apperr.Validation(op, "No file provided")
		}
		return nil, apperr.Validation(op, "Invalid file")
	}

	// Validate file size again after reading the header
	if header.Size > maxSize {
		file.Close()
		return nil, apperr.PayloadTooLarge(op, "File exceeds maximum allowed size")
	}

	return &Upload{
		File:     file,
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
	}, nil
}
