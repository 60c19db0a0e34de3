package httpx

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"sharedrop/internal/storage"
)

// ServeDownload streams d to the client. Once headers are out a failure
// can only be logged; the connection is dropped.
func ServeDownload(w http.ResponseWriter, r *http.Request, d *storage.Download) storage.StreamResult {
	res := storage.Serve(r.Context(), w, d)

	switch {
	case res.OK():
		log.Debug().
			Str("path", r.URL.Path).
			Int64("bytes", res.Written).
			Msg("download completed")
	case res.Canceled():
		log.Info().
			Str("path", r.URL.Path).
			Int64("bytes", res.Written).
			Int64("size", d.Size).
			Msg("download canceled by client")
	default:
		log.Warn().
			Err(res.Err).
			Str("path", r.URL.Path).
			Int64("bytes", res.Written).
			Int64("size", d.Size).
			Msg("download interrupted")
	}
	return res
}
