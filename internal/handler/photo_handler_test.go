package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/bounceheads/directory/internal/photo"
	"github.com/bounceheads/directory/internal/places"
	"github.com/bounceheads/directory/internal/storage"
)

type fakeFetcher struct {
	calls []string
	err   error
}

func (f *fakeFetcher) FetchMedia(ctx context.Context, rawURL string) (*places.Media, error) {
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	return &places.Media{Body: []byte("jpeg"), ContentType: "image/jpeg"}, nil
}

type memoryCache struct {
	items map[string]*places.Media
}

func (m *memoryCache) Get(ctx context.Context, key string) (*places.Media, bool, error) {
	media, ok := m.items[key]
	return media, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, media *places.Media) error {
	m.items[key] = media
	return nil
}

type fakeObjects struct {
	objects map[string]string
}

func (f *fakeObjects) Bucket() string { return "bounce-heads-images" }

func (f *fakeObjects) Download(ctx context.Context, name string) (*places.Media, error) {
	body, ok := f.objects[name]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &places.Media{Body: []byte(body), ContentType: storage.ContentType(name)}, nil
}

func servePhoto(h *PhotoHandler, query string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/photo?"+query, nil)
	rec := httptest.NewRecorder()
	_ = h.Photo(e.NewContext(req, rec))
	return rec
}

func TestPhotoHandler_Legacy(t *testing.T) {
	fetcher := &fakeFetcher{}
	photoCache := &memoryCache{items: map[string]*places.Media{}}
	h := NewPhotoHandler(fetcher, nil, photoCache, nil)

	rec := servePhoto(h, "ref=CmRaAAAAlegacy&maxwidth=400")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "jpeg" || rec.Header().Get(echo.HeaderContentType) != "image/jpeg" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if rec.Header().Get("Cache-Control") != "public, max-age=86400" {
		t.Fatalf("unexpected cache control %q", rec.Header().Get("Cache-Control"))
	}
	if len(fetcher.calls) != 1 || fetcher.calls[0] != photo.LegacyURL("CmRaAAAAlegacy", 400) {
		t.Fatalf("unexpected upstream calls: %v", fetcher.calls)
	}

	// served from cache the second time
	rec = servePhoto(h, "ref=CmRaAAAAlegacy&maxwidth=400")
	if rec.Code != http.StatusOK || len(fetcher.calls) != 1 {
		t.Fatalf("expected cache hit, calls=%v", fetcher.calls)
	}
}

func TestPhotoHandler_V1(t *testing.T) {
	fetcher := &fakeFetcher{}
	h := NewPhotoHandler(fetcher, nil, nil, nil)

	rec := servePhoto(h, "ref=AciIO2xyz&placeId=ChIJ123&maxwidth=99999")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fetcher.calls[0] != photo.MediaURL("ChIJ123", "AciIO2xyz", photo.DefaultMaxWidth) {
		t.Fatalf("unexpected upstream url %s", fetcher.calls[0])
	}

	rec = servePhoto(h, "ref=AciIO2xyz")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without placeId, got %d", rec.Code)
	}
}

func TestPhotoHandler_Errors(t *testing.T) {
	tests := map[string]struct {
		query      string
		err        error
		expectCode int
	}{
		"missing ref":        {query: "", expectCode: http.StatusBadRequest},
		"upstream forbidden": {query: "ref=abc", err: &places.APIError{StatusCode: http.StatusForbidden}, expectCode: http.StatusNotFound},
		"upstream missing":   {query: "ref=abc", err: &places.APIError{StatusCode: http.StatusNotFound}, expectCode: http.StatusNotFound},
		"upstream down":      {query: "ref=abc", err: &places.APIError{StatusCode: http.StatusInternalServerError}, expectCode: http.StatusBadGateway},
		"network":            {query: "ref=abc", err: errors.New("dial tcp"), expectCode: http.StatusBadGateway},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := servePhoto(NewPhotoHandler(&fakeFetcher{err: tt.err}, nil, nil, nil), tt.query)
			if rec.Code != tt.expectCode {
				t.Fatalf("expected %d, got %d", tt.expectCode, rec.Code)
			}
		})
	}
}

func TestPhotoHandler_Image(t *testing.T) {
	objects := &fakeObjects{objects: map[string]string{"images/parks/a/1.png": "png"}}
	h := NewPhotoHandler(&fakeFetcher{}, objects, nil, nil)

	serve := func(h *PhotoHandler, target string) *httptest.ResponseRecorder {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/image?url="+url.QueryEscape(target), nil)
		rec := httptest.NewRecorder()
		_ = h.Image(e.NewContext(req, rec))
		return rec
	}

	rec := serve(h, "https://storage.googleapis.com/bounce-heads-images/images/parks/a/1.png")
	if rec.Code != http.StatusOK || rec.Body.String() != "png" {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Cache-Control"), "immutable") {
		t.Fatalf("unexpected cache control %q", rec.Header().Get("Cache-Control"))
	}

	if rec := serve(h, "https://storage.googleapis.com/other-bucket/x.png"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for foreign bucket, got %d", rec.Code)
	}
	if rec := serve(h, "https://storage.googleapis.com/bounce-heads-images/images/parks/b/9.png"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing object, got %d", rec.Code)
	}
	if rec := serve(NewPhotoHandler(&fakeFetcher{}, nil, nil, nil), "https://storage.googleapis.com/bounce-heads-images/x.png"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without storage, got %d", rec.Code)
	}
}
