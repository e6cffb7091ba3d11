// Package api exposes the blob cache over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/obot-platform/arenalru/internal/blobcache"
	"github.com/obot-platform/arenalru/internal/logger"
)

// Handler serves the cache endpoints.
type Handler struct {
	cache        *blobcache.Cache
	logger       *logger.Logger
	maxBlobBytes int64
}

// NewHandler creates a handler for cache c.
func NewHandler(c *blobcache.Cache, log *logger.Logger, maxBlobBytes int64) *Handler {
	return &Handler{
		cache:        c,
		logger:       log,
		maxBlobBytes: maxBlobBytes,
	}
}

// Router builds the HTTP routes.
//
//	GET    /healthz
//	GET    /v1/stats
//	GET    /v1/blobs        keys, most recently used first
//	DELETE /v1/blobs
//	GET    /v1/blobs/{key}
//	HEAD   /v1/blobs/{key}
//	PUT    /v1/blobs/{key}
//
// Keys may contain slashes.
func (h *Handler) Router(corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(AccessLog(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "X-Cache", "X-Cache-Date"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", h.GetStats)

		r.Route("/blobs", func(r chi.Router) {
			r.Get("/", h.ListBlobs)
			r.Delete("/", h.ClearBlobs)
			r.Get("/*", h.GetBlob)
			r.Head("/*", h.HeadBlob)
			r.Put("/*", h.PutBlob)
		})
	})

	return r
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.JSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"cache_enabled": h.cache.Enabled(),
	})
}

// GetStats returns cache statistics.
// GET /v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, _ *http.Request) {
	h.JSON(w, http.StatusOK, h.cache.GetStats())
}

// ListBlobs returns stored keys, most recently used first.
// GET /v1/blobs
func (h *Handler) ListBlobs(w http.ResponseWriter, _ *http.Request) {
	keys := h.cache.Keys()
	if keys == nil {
		keys = []string{}
	}
	h.JSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// ClearBlobs drops every stored blob.
// DELETE /v1/blobs
func (h *Handler) ClearBlobs(w http.ResponseWriter, _ *http.Request) {
	if err := h.cache.Clear(); err != nil {
		h.cacheError(w, err)
		return
	}
	h.logger.Info("cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

// GetBlob returns a stored blob and marks it most recently used.
// GET /v1/blobs/{key}
func (h *Handler) GetBlob(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	entry, err := h.cache.Get(key)
	if err != nil {
		h.cacheError(w, err)
		return
	}

	if err := blobcache.WriteResponse(w, entry); err != nil {
		h.logger.Debug("write response", "key", key, "error", err)
	}
}

// HeadBlob reports blob metadata and marks it most recently used.
// HEAD /v1/blobs/{key}
func (h *Handler) HeadBlob(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	info, err := h.cache.Info(key)
	if err != nil {
		h.cacheError(w, err)
		return
	}

	w.Header().Set("X-Cache", "HIT")
	w.Header().Set("X-Cache-Date", info.StoredAt.UTC().Format(time.RFC3339))
	w.WriteHeader(http.StatusOK)
}

// PutBlob stores the request body under key.
// PUT /v1/blobs/{key}
func (h *Handler) PutBlob(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	entry, err := blobcache.CaptureRequest(r, h.maxBlobBytes)
	if err != nil {
		h.cacheError(w, err)
		return
	}

	if err := h.cache.Put(key, entry); err != nil {
		h.cacheError(w, err)
		return
	}

	h.logger.Debug("stored blob", "key", key, "size", entry.Size)
	h.JSON(w, http.StatusCreated, blobcache.Info{Key: key, Size: entry.Size, StoredAt: entry.StoredAt})
}

// cacheError maps cache errors to HTTP statuses.
func (h *Handler) cacheError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, blobcache.ErrCacheMiss):
		h.Error(w, http.StatusNotFound, "blob not found")
	case errors.Is(err, blobcache.ErrCacheDisabled):
		h.Error(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, blobcache.ErrInvalidKey):
		h.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, blobcache.ErrTooLarge):
		h.Error(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, blobcache.ErrDigestMismatch):
		h.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("cache operation failed", "error", err)
		h.Error(w, http.StatusInternalServerError, "internal error")
	}
}

// JSON writes v as a JSON response.
func (h *Handler) JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("encode response", "error", err)
	}
}

// Error writes a JSON error body.
func (h *Handler) Error(w http.ResponseWriter, status int, msg string) {
	h.JSON(w, status, map[string]string{"error": msg})
}
