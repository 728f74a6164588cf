// Package storage uploads park images to a public object storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storagev1 "google.golang.org/api/storage/v1"

	"github.com/bounceheads/directory/internal/photo"
	"github.com/bounceheads/directory/internal/places"
)

// ErrObjectNotFound is returned when an object is missing or not readable.
var ErrObjectNotFound = errors.New("object not found")

// CacheControl is set on every uploaded object.
const CacheControl = "public, max-age=31536000"

// Uploader writes objects into one bucket.
type Uploader struct {
	objects *storagev1.ObjectsService
	bucket  string
}

// NewUploader builds an uploader. An empty credentialsFile uses application
// default credentials; extra options are appended.
func NewUploader(ctx context.Context, bucket, credentialsFile string, opts ...option.ClientOption) (*Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket must not be empty")
	}
	if credentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(credentialsFile)}, opts...)
	}
	svc, err := storagev1.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Uploader{objects: svc.Objects, bucket: bucket}, nil
}

// Bucket returns the target bucket name.
func (u *Uploader) Bucket() string {
	return u.bucket
}

// Upload stores body under name as a publicly readable object and returns its
// public URL.
func (u *Uploader) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	object := &storagev1.Object{
		Name:         name,
		ContentType:  contentType,
		CacheControl: CacheControl,
	}
	_, err := u.objects.Insert(u.bucket, object).
		Media(body).
		PredefinedAcl("publicRead").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return PublicURL(u.bucket, name), nil
}

// Download reads one object. A missing or forbidden object yields
// ErrObjectNotFound.
func (u *Uploader) Download(ctx context.Context, name string) (*places.Media, error) {
	resp, err := u.objects.Get(u.bucket, name).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusForbidden) {
			return nil, fmt.Errorf("download %s: %w", name, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = ContentType(name)
	}
	return &places.Media{Body: body, ContentType: contentType}, nil
}

// ObjectName returns the object name of a public URL in bucket. ok is false
// for URLs outside the bucket.
func ObjectName(bucket, rawURL string) (name string, ok bool) {
	prefix := photo.ObjectStoragePrefix + bucket + "/"
	if bucket == "" || !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	name = strings.TrimPrefix(rawURL, prefix)
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, "?#") {
		return "", false
	}
	return name, true
}

// PublicURL is the public address of an object.
func PublicURL(bucket, name string) string {
	return photo.ObjectStoragePrefix + bucket + "/" + strings.TrimPrefix(name, "/")
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ContentType maps an image file extension to its MIME type.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsImage reports whether name has an image extension.
func IsImage(name string) bool {
	_, ok := contentTypes[strings.ToLower(path.Ext(name))]
	return ok
}
