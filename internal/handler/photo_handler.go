package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bounceheads/directory/internal/cache"
	"github.com/bounceheads/directory/internal/photo"
	"github.com/bounceheads/directory/internal/places"
	"github.com/bounceheads/directory/internal/storage"
)

const (
	photoCacheControl = "public, max-age=86400"
	imageCacheControl = "public, max-age=31536000, immutable"
	maxPhotoWidth     = 1600
)

// MediaFetcher downloads photo bytes from a Places fetch URL.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, rawURL string) (*places.Media, error)
}

// ObjectReader downloads an object from the image bucket.
type ObjectReader interface {
	Bucket() string
	Download(ctx context.Context, name string) (*places.Media, error)
}

// PhotoHandler proxies Google photos and bucket images so that neither the
// API key nor the bucket layout leaks to clients.
type PhotoHandler struct {
	fetcher MediaFetcher
	objects ObjectReader
	cache   cache.PhotoCache
	logger  *zap.Logger
}

// NewPhotoHandler builds the proxy. objects and photoCache may be nil.
func NewPhotoHandler(fetcher MediaFetcher, objects ObjectReader, photoCache cache.PhotoCache, logger *zap.Logger) *PhotoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PhotoHandler{fetcher: fetcher, objects: objects, cache: photoCache, logger: logger}
}

// Photo handles GET /api/photo?ref=&placeId=&maxwidth= requests.
func (h *PhotoHandler) Photo(c echo.Context) error {
	ref := strings.TrimSpace(c.QueryParam("ref"))
	if ref == "" {
		return Error(c, http.StatusBadRequest, "ref is required")
	}
	width := parseIntDefault(c.QueryParam("maxwidth"), photo.DefaultMaxWidth)
	if width <= 0 || width > maxPhotoWidth {
		width = photo.DefaultMaxWidth
	}

	var target string
	if photo.IsV1Reference(ref) {
		placeID := strings.TrimSpace(c.QueryParam("placeId"))
		if placeID == "" {
			return Error(c, http.StatusNotFound, "photo not found")
		}
		target = photo.MediaURL(placeID, ref, width)
	} else {
		target = photo.LegacyURL(ref, width)
	}

	ctx := c.Request().Context()
	if media, ok := h.cached(ctx, target); ok {
		return h.send(c, photoCacheControl, media)
	}

	media, err := h.fetcher.FetchMedia(ctx, target)
	if err != nil {
		var apiErr *places.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusForbidden) {
			return Error(c, http.StatusNotFound, "photo not found")
		}
		h.logger.Warn("photo proxy failed", zap.Error(err))
		return Error(c, http.StatusBadGateway, "failed to fetch photo")
	}

	h.store(ctx, target, media)
	return h.send(c, photoCacheControl, media)
}

// Image handles GET /api/image?url= requests for objects in the image bucket.
func (h *PhotoHandler) Image(c echo.Context) error {
	if h.objects == nil {
		return Error(c, http.StatusNotFound, "image storage is not configured")
	}
	name, ok := storage.ObjectName(h.objects.Bucket(), strings.TrimSpace(c.QueryParam("url")))
	if !ok {
		return Error(c, http.StatusBadRequest, "url must point at the image bucket")
	}

	media, err := h.objects.Download(c.Request().Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return Error(c, http.StatusNotFound, "image not found")
		}
		h.logger.Warn("image proxy failed", zap.String("object", name), zap.Error(err))
		return Error(c, http.StatusBadGateway, "failed to fetch image")
	}
	return h.send(c, imageCacheControl, media)
}

func (h *PhotoHandler) cached(ctx context.Context, key string) (*places.Media, bool) {
	if h.cache == nil {
		return nil, false
	}
	media, ok, err := h.cache.Get(ctx, key)
	if err != nil {
		h.logger.Warn("photo cache read failed", zap.Error(err))
		return nil, false
	}
	return media, ok
}

func (h *PhotoHandler) store(ctx context.Context, key string, media *places.Media) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, key, media); err != nil {
		h.logger.Warn("photo cache write failed", zap.Error(err))
	}
}

func (h *PhotoHandler) send(c echo.Context, cacheControl string, media *places.Media) error {
	c.Response().Header().Set(echo.HeaderCacheControl, cacheControl)
	return c.Blob(http.StatusOK, media.ContentType, media.Body)
}
