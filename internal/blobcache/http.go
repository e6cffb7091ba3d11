package blobcache

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ErrTooLarge indicates a request body exceeded the allowed size.
var ErrTooLarge = errors.New("blob too large")

// CaptureRequest reads an upload into an Entry, rejecting bodies larger than
// maxBytes.
func CaptureRequest(req *http.Request, maxBytes int64) (*Entry, error) {
	if req == nil || req.Body == nil {
		return nil, errors.New("nil request body")
	}
	defer req.Body.Close()

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, maxBytes)
	}

	contentType := req.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Entry{
		ContentType: contentType,
		Body:        body,
		StoredAt:    time.Now(),
	}, nil
}

// WriteResponse writes a cached entry as an HTTP response.
func WriteResponse(w http.ResponseWriter, entry *Entry) error {
	h := w.Header()
	h.Set("Content-Type", entry.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(entry.Body)))
	h.Set("X-Cache", "HIT")
	h.Set("X-Cache-Date", entry.StoredAt.UTC().Format(time.RFC3339))
	w.WriteHeader(http.StatusOK)

	_, err := w.Write(entry.Body)
	return err
}
