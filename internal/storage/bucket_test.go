package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestUploader_Upload(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, r.URL.Path+"?"+r.URL.RawQuery+"\n"+string(body))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"images/parks/sky-zone/1.jpg","bucket":"bounce-heads-images"}`))
	}))
	defer server.Close()

	u, err := NewUploader(context.Background(), "bounce-heads-images", "",
		option.WithEndpoint(server.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	url, err := u.Upload(context.Background(), "images/parks/sky-zone/1.jpg", "image/jpeg", strings.NewReader("jpegbytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/bounce-heads-images/images/parks/sky-zone/1.jpg", url)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Contains(t, seen[0], "/b/bounce-heads-images/o")
	assert.Contains(t, seen[0], "predefinedAcl=publicRead")
	assert.Contains(t, seen[0], "jpegbytes")
	assert.Contains(t, seen[0], CacheControl)
}

func TestUploader_UploadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	}))
	defer server.Close()

	u, err := NewUploader(context.Background(), "b", "",
		option.WithEndpoint(server.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), "x.png", "image/png", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestNewUploader_RequiresBucket(t *testing.T) {
	_, err := NewUploader(context.Background(), "", "")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType("a/1.JPG"))
	assert.Equal(t, "image/webp", ContentType("2.webp"))
	assert.Equal(t, "application/octet-stream", ContentType("notes.txt"))
	assert.True(t, IsImage("x.gif"))
	assert.False(t, IsImage("x.svg"))
}

func TestUploader_Download(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.Error(w, `{"error":{"code":404,"message":"No such object"}}`, http.StatusNotFound)
			return
		}
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("pngbytes"))
	}))
	defer server.Close()

	u, err := NewUploader(context.Background(), "bounce-heads-images", "",
		option.WithEndpoint(server.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	media, err := u.Download(context.Background(), "images/parks/a/1.png")
	require.NoError(t, err)
	assert.Equal(t, "pngbytes", string(media.Body))
	assert.Equal(t, "image/png", media.ContentType)

	_, err = u.Download(context.Background(), "images/parks/missing/1.png")
	assert.True(t, errors.Is(err, ErrObjectNotFound), "got %v", err)
}

func TestObjectName(t *testing.T) {
	name, ok := ObjectName("bucket", "https://storage.googleapis.com/bucket/images/parks/a/1.jpg")
	assert.True(t, ok)
	assert.Equal(t, "images/parks/a/1.jpg", name)

	for _, raw := range []string{
		"https://storage.googleapis.com/other/images/1.jpg",
		"https://example.com/bucket/1.jpg",
		"https://storage.googleapis.com/bucket/",
		"https://storage.googleapis.com/bucket/../secret",
	} {
		_, ok := ObjectName("bucket", raw)
		assert.False(t, ok, raw)
	}
	_, ok = ObjectName("", "https://storage.googleapis.com//x.jpg")
	assert.False(t, ok)
}
