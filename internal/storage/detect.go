package storage

import (
	"bytes"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

const sniffLen = 3072

// DetectMimeType reads a header off r and returns the detected type along
// with a reader that replays the header before the rest of r.
// declared wins when it is set and more specific than octet-stream.
func DetectMimeType(r io.Reader, declared string) (string, io.Reader, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	header = header[:n]
	replay := io.MultiReader(bytes.NewReader(header), r)

	if declared != "" && declared != "application/octet-stream" {
		return declared, replay, nil
	}
	return mimetype.Detect(header).String(), replay, nil
}
