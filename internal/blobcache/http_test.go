package blobcache

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCaptureRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/v1/blobs/k", strings.NewReader("test content"))
	req.Header.Set("Content-Type", "text/plain")

	entry, err := CaptureRequest(req, 1024)
	if err != nil {
		t.Fatalf("CaptureRequest failed: %v", err)
	}
	if string(entry.Body) != "test content" {
		t.Errorf("body mismatch: got %s, want 'test content'", entry.Body)
	}
	if entry.ContentType != "text/plain" {
		t.Errorf("expected text/plain, got %s", entry.ContentType)
	}
	if entry.StoredAt.IsZero() {
		t.Error("expected capture time to be set")
	}
}

func TestCaptureRequest_DefaultContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/v1/blobs/k", strings.NewReader("x"))

	entry, err := CaptureRequest(req, 1024)
	if err != nil {
		t.Fatalf("CaptureRequest failed: %v", err)
	}
	if entry.ContentType != "application/octet-stream" {
		t.Errorf("expected octet-stream default, got %s", entry.ContentType)
	}
}

func TestCaptureRequest_TooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/v1/blobs/k", strings.NewReader("0123456789"))

	if _, err := CaptureRequest(req, 9); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if _, err := CaptureRequest(httptest.NewRequest(http.MethodPut, "/", strings.NewReader("0123456789")), 10); err != nil {
		t.Errorf("body at the limit should pass, got %v", err)
	}
}

func TestWriteResponse(t *testing.T) {
	storedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := httptest.NewRecorder()

	err := WriteResponse(rec, &Entry{ContentType: "text/plain", Body: []byte("cached"), StoredAt: storedAt})
	if err != nil {
		t.Fatalf("WriteResponse failed: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Error("expected X-Cache: HIT header")
	}
	if got := rec.Header().Get("X-Cache-Date"); got != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected X-Cache-Date %s", got)
	}
	if rec.Body.String() != "cached" {
		t.Errorf("body mismatch: got %s", rec.Body.String())
	}
}
