package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bounceheads/directory/internal/dto"
	"github.com/bounceheads/directory/internal/entity"
	"github.com/bounceheads/directory/internal/photo"
	"github.com/bounceheads/directory/internal/places"
	"github.com/bounceheads/directory/internal/repository"
	"github.com/bounceheads/directory/internal/storage"
)

// ImagesPath is the public URL prefix of downloaded park images.
const ImagesPath = "/images/parks"

// UploadBatchSize is how many uploads run together before the next group starts.
const UploadBatchSize = 10

// PhotoSource fetches photo metadata and bytes from the Places API.
type PhotoSource interface {
	PhotoMetadata(ctx context.Context, placeID string) ([]json.RawMessage, error)
	FetchMedia(ctx context.Context, rawURL string) (*places.Media, error)
}

// ObjectUploader stores one object and returns its public URL.
type ObjectUploader interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error)
}

// MediaOptions configures a MediaService.
type MediaOptions struct {
	PublicDir     string
	MetadataDelay time.Duration
	MediaDelay    time.Duration
	MaxPhotos     int
	MaxWidth      int
}

// MediaService runs the photo maintenance steps: metadata refresh, local
// download, bucket upload and URL rewrite.
type MediaService struct {
	repo     repository.ParksRepository
	photos   PhotoSource
	uploader ObjectUploader
	resolver *photo.Resolver
	opts     MediaOptions
	logger   *zap.Logger
}

// NewMediaService wires the photo maintenance steps. uploader may be nil when
// uploads are not used.
func NewMediaService(repo repository.ParksRepository, photos PhotoSource, uploader ObjectUploader, opts MediaOptions, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PublicDir == "" {
		opts.PublicDir = "public"
	}
	return &MediaService{
		repo:     repo,
		photos:   photos,
		uploader: uploader,
		resolver: photo.NewResolver(opts.MaxPhotos, opts.MaxWidth),
		opts:     opts,
		logger:   logger,
	}
}

func pacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// FetchPhotoMetadata stores v1 photo descriptors for every park that has no
// images yet.
func (s *MediaService) FetchPhotoMetadata(ctx context.Context) (dto.MediaSummary, error) {
	parks, err := s.repo.ListWithoutImages(ctx)
	if err != nil {
		return dto.MediaSummary{}, err
	}

	summary := dto.MediaSummary{Parks: len(parks)}
	limiter := pacer(s.opts.MetadataDelay)
	for _, park := range parks {
		if err := limiter.Wait(ctx); err != nil {
			return summary, err
		}

		raws, err := s.photos.PhotoMetadata(ctx, park.ID)
		if err != nil {
			s.logger.Warn("photo metadata failed", zap.String("id", park.ID), zap.String("name", park.Name), zap.Error(err))
			summary.Errors++
			continue
		}
		images := s.resolver.ResolveAll(raws)
		if len(images) == 0 {
			s.logger.Info("no photos found", zap.String("name", park.Name))
			summary.NoPhotos++
			continue
		}
		if err := s.repo.UpdateImages(ctx, park.ID, images); err != nil {
			s.logger.Warn("store photo metadata failed", zap.String("id", park.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		s.logger.Info("photos updated", zap.String("name", park.Name), zap.Int("photos", len(images)))
		summary.Updated++
	}
	return summary, nil
}

// DownloadImages saves every v1 photo under <public>/images/parks/<slug>/<n>.<ext>
// and points the park at the local copies. Other image kinds are left alone.
// A failing download keeps that photo's remote descriptor, and a park with no
// successful download is not written. File system errors stop the run.
func (s *MediaService) DownloadImages(ctx context.Context) (dto.MediaSummary, error) {
	parks, err := s.repo.All(ctx)
	if err != nil {
		return dto.MediaSummary{}, err
	}

	summary := dto.MediaSummary{}
	limiter := pacer(s.opts.MediaDelay)
	for _, park := range parks {
		if len(park.Images) == 0 {
			continue
		}
		summary.Parks++

		images, changed, err := s.downloadPark(ctx, limiter, park, &summary)
		if err != nil {
			return summary, err
		}
		if !changed {
			continue
		}
		if err := s.repo.UpdateImages(ctx, park.ID, images); err != nil {
			s.logger.Warn("store local images failed", zap.String("id", park.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		summary.Updated++
	}
	s.logger.Info("image download complete", zap.Int("files", summary.Files), zap.Int64("bytes", summary.Bytes), zap.Int("errors", summary.Errors))
	return summary, nil
}

func (s *MediaService) downloadPark(ctx context.Context, limiter *rate.Limiter, park entity.Park, summary *dto.MediaSummary) (photo.Images, bool, error) {
	dir := filepath.Join(s.opts.PublicDir, filepath.FromSlash(ImagesPath), park.Slug)
	out := make(photo.Images, 0, len(park.Images))
	changed := false

	for i, img := range park.Images {
		d := photo.DetectString(img.Path)
		if d.Kind != photo.KindPlacesV1 {
			out = append(out, img)
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			return nil, false, err
		}
		media, err := s.photos.FetchMedia(ctx, photo.MediaURL(d.PlaceID, d.PhotoID, s.resolver.MaxWidth))
		if err != nil {
			s.logger.Warn("photo download failed", zap.String("name", park.Name), zap.Int("photo", i+1), zap.Error(err))
			summary.Errors++
			out = append(out, img)
			continue
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, fmt.Errorf("create image dir: %w", err)
		}
		fileName := fmt.Sprintf("%d%s", i+1, extension(media.ContentType))
		if err := os.WriteFile(filepath.Join(dir, fileName), media.Body, 0o644); err != nil {
			return nil, false, fmt.Errorf("write image: %w", err)
		}

		out = append(out, photo.Image{
			Path:               path.Join(ImagesPath, park.Slug, fileName),
			Width:              img.Width,
			Height:             img.Height,
			AuthorAttributions: img.AuthorAttributions,
		})
		changed = true
		summary.Files++
		summary.Bytes += int64(len(media.Body))
	}
	return out, changed, nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// UploadImages uploads every image under <public>/images/parks in groups of
// UploadBatchSize and writes the old path to new URL mapping to mappingsPath.
func (s *MediaService) UploadImages(ctx context.Context, mappingsPath string) (map[string]string, dto.MediaSummary, error) {
	if s.uploader == nil {
		return nil, dto.MediaSummary{}, errors.New("object storage is not configured")
	}

	files, err := s.localImages()
	if err != nil {
		return nil, dto.MediaSummary{}, err
	}

	var (
		mu       sync.Mutex
		mappings = make(map[string]string, len(files))
		summary  dto.MediaSummary
	)
	for start := 0; start < len(files); start += UploadBatchSize {
		end := min(start+UploadBatchSize, len(files))
		g, gCtx := errgroup.WithContext(ctx)
		for _, rel := range files[start:end] {
			g.Go(func() error {
				body, err := os.ReadFile(filepath.Join(s.opts.PublicDir, filepath.FromSlash(rel)))
				if err != nil {
					return fmt.Errorf("read image %s: %w", rel, err)
				}
				url, err := s.uploader.Upload(gCtx, rel, storage.ContentType(rel), bytes.NewReader(body))

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					s.logger.Warn("upload failed", zap.String("path", rel), zap.Error(err))
					summary.Errors++
					return nil
				}
				mappings["/"+rel] = url
				summary.Files++
				summary.Bytes += int64(len(body))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, summary, err
		}
		s.logger.Info("uploaded batch", zap.Int("done", end), zap.Int("total", len(files)))
	}

	payload, err := json.MarshalIndent(mappings, "", "  ")
	if err != nil {
		return nil, summary, fmt.Errorf("encode url mappings: %w", err)
	}
	if err := os.WriteFile(mappingsPath, payload, 0o644); err != nil {
		return nil, summary, fmt.Errorf("write url mappings: %w", err)
	}
	return mappings, summary, nil
}

// localImages lists image files below the images directory as slash paths
// relative to the public directory.
func (s *MediaService) localImages() ([]string, error) {
	root := filepath.Join(s.opts.PublicDir, filepath.FromSlash(ImagesPath))
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !storage.IsImage(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(s.opts.PublicDir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan images: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// ReadMappings loads a url-mappings.json file.
func ReadMappings(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read url mappings: %w", err)
	}
	var mappings map[string]string
	if err := json.Unmarshal(data, &mappings); err != nil {
		return nil, fmt.Errorf("decode url mappings: %w", err)
	}
	return mappings, nil
}

// RewriteImageURLs replaces image paths found in mappings and stores the parks
// that changed.
func (s *MediaService) RewriteImageURLs(ctx context.Context, mappings map[string]string) (dto.MediaSummary, error) {
	parks, err := s.repo.All(ctx)
	if err != nil {
		return dto.MediaSummary{}, err
	}

	var summary dto.MediaSummary
	for _, park := range parks {
		if len(park.Images) == 0 {
			continue
		}
		summary.Parks++

		changed := false
		images := make(photo.Images, len(park.Images))
		for i, img := range park.Images {
			if next, ok := mappings[img.Path]; ok {
				img.Path = next
				changed = true
				summary.Files++
			}
			images[i] = img
		}
		if !changed {
			continue
		}
		if err := s.repo.UpdateImages(ctx, park.ID, images); err != nil {
			s.logger.Warn("rewrite image urls failed", zap.String("id", park.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		s.logger.Info("image urls rewritten", zap.String("name", park.Name))
		summary.Updated++
	}
	return summary, nil
}
