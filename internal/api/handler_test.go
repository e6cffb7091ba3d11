package api

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/obot-platform/arenalru/internal/blobcache"
	"github.com/obot-platform/arenalru/internal/logger"
)

func newTestServer(t *testing.T, capacity int) *httptest.Server {
	t.Helper()

	c, err := blobcache.New(t.TempDir(), capacity, blobcache.Options{Compress: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("blobcache.New failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	h := NewHandler(c, logger.NewNop(), 64)
	srv := httptest.NewServer(h.Router([]string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "text/plain")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHandler_PutGet(t *testing.T) {
	srv := newTestServer(t, 4)

	resp := do(t, http.MethodPut, srv.URL+"/v1/blobs/team/a.txt", "hello")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	info := decode[blobcache.Info](t, resp)
	if info.Key != "team/a.txt" {
		t.Errorf("expected key team/a.txt, got %s", info.Key)
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/blobs/team/a.txt", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Cache") != "HIT" {
		t.Error("expected X-Cache: HIT header")
	}
	if resp.Header.Get("Content-Type") != "text/plain" {
		t.Errorf("expected text/plain, got %s", resp.Header.Get("Content-Type"))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("expected body hello, got %s", body)
	}

	resp = do(t, http.MethodHead, srv.URL+"/v1/blobs/team/a.txt", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected HEAD 200, got %d", resp.StatusCode)
	}
}

func TestHandler_Errors(t *testing.T) {
	srv := newTestServer(t, 4)
	wrong := strings.Repeat("0", 64)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "missing blob", method: http.MethodGet, path: "/v1/blobs/nope", want: http.StatusNotFound},
		{name: "missing head", method: http.MethodHead, path: "/v1/blobs/nope", want: http.StatusNotFound},
		{name: "too large", method: http.MethodPut, path: "/v1/blobs/big", body: strings.Repeat("x", 65), want: http.StatusRequestEntityTooLarge},
		{name: "digest mismatch", method: http.MethodPut, path: "/v1/blobs/sha256:" + wrong, body: "data", want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestHandler_DigestKey(t *testing.T) {
	srv := newTestServer(t, 4)
	digest := fmt.Sprintf("%x", sha256.Sum256([]byte("layer")))

	resp := do(t, http.MethodPut, srv.URL+"/v1/blobs/sha256:"+digest, "layer")
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201 for matching digest, got %d", resp.StatusCode)
	}
}

func TestHandler_ListEvictAndClear(t *testing.T) {
	srv := newTestServer(t, 2)

	do(t, http.MethodPut, srv.URL+"/v1/blobs/a", "A")
	do(t, http.MethodPut, srv.URL+"/v1/blobs/b", "B")
	do(t, http.MethodGet, srv.URL+"/v1/blobs/a", "")
	do(t, http.MethodPut, srv.URL+"/v1/blobs/c", "C")

	list := decode[struct {
		Keys []string `json:"keys"`
	}](t, do(t, http.MethodGet, srv.URL+"/v1/blobs", ""))
	if strings.Join(list.Keys, ",") != "c,a" {
		t.Errorf("expected keys c,a, got %v", list.Keys)
	}

	stats := decode[blobcache.Stats](t, do(t, http.MethodGet, srv.URL+"/v1/stats", ""))
	if stats.Evictions != 1 || stats.Entries != 2 || stats.Capacity != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}

	resp := do(t, http.MethodDelete, srv.URL+"/v1/blobs", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}

	list = decode[struct {
		Keys []string `json:"keys"`
	}](t, do(t, http.MethodGet, srv.URL+"/v1/blobs", ""))
	if len(list.Keys) != 0 {
		t.Errorf("expected no keys after clear, got %v", list.Keys)
	}
}

func TestHandler_Disabled(t *testing.T) {
	srv := newTestServer(t, 0)

	health := decode[map[string]any](t, do(t, http.MethodGet, srv.URL+"/healthz", ""))
	if health["cache_enabled"] != false {
		t.Errorf("expected cache_enabled false, got %v", health["cache_enabled"])
	}

	resp := do(t, http.MethodPut, srv.URL+"/v1/blobs/a", "A")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, 1)

	resp := do(t, http.MethodGet, srv.URL+"/healthz", "")
	generated := resp.Header.Get(RequestIDHeader)
	if generated == "" {
		t.Fatal("expected a generated request ID")
	}

	const supplied = "0b7c5c44-4f0e-4c8e-9a43-2f1f7b7f0c11"
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set(RequestIDHeader, supplied)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp2.Body.Close()
	if got := resp2.Header.Get(RequestIDHeader); got != supplied {
		t.Errorf("expected supplied request ID %s, got %s", supplied, got)
	}

	req3, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req3.Header.Set(RequestIDHeader, "not-a-uuid")
	resp3, err := http.DefaultClient.Do(req3)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp3.Body.Close()
	if got := resp3.Header.Get(RequestIDHeader); got == "not-a-uuid" || got == "" {
		t.Errorf("expected invalid request ID to be replaced, got %q", got)
	}
}
