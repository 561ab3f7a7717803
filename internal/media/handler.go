// Package media serves stored pictures (avatars, program thumbnails, mosque
// photos) by redirecting to short-lived pre-signed URLs.
package media

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noor-academy/backend/pkg/apperr"
	"github.com/noor-academy/backend/pkg/response"
	"github.com/noor-academy/backend/pkg/storage"
)

// Store resolves media keys to signed URLs.
type Store interface {
	ObjectExists(ctx context.Context, key string) (bool, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// Handler handles GET /media/*path.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a media handler. A nil store makes every lookup 503.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Get redirects to a pre-signed URL for the stored object.
func (h *Handler) Get(c *gin.Context) {
	if h.store == nil {
		response.ServiceUnavailable(c, "media storage not configured")
		return
	}
	key, err := storage.MediaKey(c.Param("path"))
	if err != nil {
		response.Error(c, apperr.NotFound("media not found"))
		return
	}
	ctx := c.Request.Context()
	ok, err := h.store.ObjectExists(ctx, key)
	if err != nil {
		h.logger.Error("media lookup", zap.String("key", key), zap.Error(err))
		response.Error(c, apperr.Upstream(err, "media lookup"))
		return
	}
	if !ok {
		response.Error(c, apperr.NotFound("media not found"))
		return
	}
	url, err := h.store.PresignGet(ctx, key)
	if err != nil {
		h.logger.Error("media presign", zap.String("key", key), zap.Error(err))
		response.Error(c, apperr.Upstream(err, "media presign"))
		return
	}
	c.Header("Cache-Control", "private, max-age=60")
	c.Redirect(http.StatusFound, url)
}
