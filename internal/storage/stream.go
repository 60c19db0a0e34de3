package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// StreamResult is the terminal outcome of a transfer
type StreamResult struct {
	Written int64
	Err     error
}

func (r StreamResult) OK() bool { return r.Err == nil }

// Canceled reports whether the transfer stopped because the caller went away
func (r StreamResult) Canceled() bool {
	return errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded)
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func newContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &contextReader{ctx: ctx, r: r}
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Stream copies r into w until r is drained, a write fails, or ctx is done.
// Aborting never touches the source blob.
func Stream(ctx context.Context, w io.Writer, r io.Reader) StreamResult {
	n, err := io.Copy(w, newContextReader(ctx, r))
	if err == nil {
		err = ctx.Err()
	}
	return StreamResult{Written: n, Err: err}
}

// Download is an opened blob ready to be sent to a client
type Download struct {
	Filename string
	MimeType string
	Size     int64
	Body     io.ReadCloser
}

// Serve writes the download headers and body. It always closes d.Body.
func Serve(ctx context.Context, w http.ResponseWriter, d *Download) StreamResult {
	defer d.Body.Close()

	mimeType := d.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(d.Size, 10))
	w.Header().Set("Content-Disposition", ContentDisposition(d.Filename))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	return Stream(ctx, w, d.Body)
}

// ContentDisposition builds an attachment header carrying the original
// filename in RFC 5987 form plus an ASCII fallback.
func ContentDisposition(filename string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	if fallback == "" {
		fallback = "download"
	}
	return `attachment; filename="` + fallback + `"; filename*=UTF-8''` + extValue(filename)
}

// extValue percent-encodes every byte outside the RFC 5987 attr-char set
func extValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
