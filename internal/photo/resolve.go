package photo

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

const (
	DefaultMaxPhotos = 5
	DefaultMaxWidth  = 800
)

// Resolver turns descriptors into persisted images.
type Resolver struct {
	MaxPhotos int
	MaxWidth  int
}

// NewResolver returns a resolver, substituting defaults for non-positive values.
func NewResolver(maxPhotos, maxWidth int) *Resolver {
	if maxPhotos <= 0 {
		maxPhotos = DefaultMaxPhotos
	}
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	return &Resolver{MaxPhotos: maxPhotos, MaxWidth: maxWidth}
}

var defaultResolver = NewResolver(DefaultMaxPhotos, DefaultMaxWidth)

// Resolve builds the stored image for d. Legacy and v1 descriptors become
// fetch URLs without an API key; local paths and object storage URLs are kept
// as they are. Unknown descriptors resolve to Placeholder.
func (r *Resolver) Resolve(d Descriptor) Image {
	img := Image{
		Width:              d.Width,
		Height:             d.Height,
		AuthorAttributions: d.Attributions,
	}

	switch d.Kind {
	case KindLegacy:
		img.Path = LegacyURL(d.Reference, r.MaxWidth)
	case KindPlacesV1:
		img.Path = MediaURL(d.PlaceID, d.PhotoID, r.MaxWidth)
	case KindLocal, KindObjectStorage:
		img.Path = d.Path
	default:
		return Image{Path: Placeholder}
	}
	return img
}

// ResolveAll detects and resolves raw photo values, keeping their order and at
// most MaxPhotos of them.
func (r *Resolver) ResolveAll(raws []json.RawMessage) Images {
	if len(raws) > r.MaxPhotos {
		raws = raws[:r.MaxPhotos]
	}
	out := make(Images, 0, len(raws))
	for _, raw := range raws {
		out = append(out, r.Resolve(Detect(raw)))
	}
	return out
}

// ResolveDescriptors is ResolveAll for already detected descriptors.
func (r *Resolver) ResolveDescriptors(ds []Descriptor) Images {
	if len(ds) > r.MaxPhotos {
		ds = ds[:r.MaxPhotos]
	}
	out := make(Images, 0, len(ds))
	for _, d := range ds {
		out = append(out, r.Resolve(d))
	}
	return out
}

// LegacyURL is the legacy photo fetch URL for ref, without credentials.
func LegacyURL(ref string, maxWidth int) string {
	return fmt.Sprintf("https://%s%s?maxwidth=%d&photoreference=%s",
		legacyPhotoHost, legacyPhotoPath, maxWidth, url.QueryEscape(ref))
}

// MediaURL is the v1 media fetch URL for a place photo, without credentials.
func MediaURL(placeID, photoID string, maxPx int) string {
	return fmt.Sprintf("https://%s/v1/places/%s/photos/%s/media?maxHeightPx=%d&maxWidthPx=%d",
		placesHost, url.PathEscape(placeID), url.PathEscape(photoID), maxPx, maxPx)
}

// ProxyURL rewrites a stored image into the URL the site renders. Object
// storage goes through the image proxy, Google photos through the photo
// proxy, local paths are served directly.
func ProxyURL(img Image) string {
	d := DetectString(img.Path)
	switch d.Kind {
	case KindObjectStorage:
		return "/api/image?url=" + url.QueryEscape(d.Path)
	case KindPlacesV1:
		q := url.Values{}
		q.Set("ref", d.PhotoID)
		q.Set("placeId", d.PlaceID)
		q.Set("maxwidth", strconv.Itoa(DefaultMaxWidth))
		return "/api/photo?" + q.Encode()
	case KindLegacy:
		q := url.Values{}
		q.Set("ref", d.Reference)
		q.Set("maxwidth", legacyWidth(img.Path))
		return "/api/photo?" + q.Encode()
	case KindLocal:
		return d.Path
	default:
		return Placeholder
	}
}

// ProxyURLs rewrites every image and drops the ones that only resolve to the placeholder.
func ProxyURLs(images Images) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		if u := ProxyURL(img); u != Placeholder {
			out = append(out, u)
		}
	}
	return out
}

func legacyWidth(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		if w, err := strconv.Atoi(u.Query().Get("maxwidth")); err == nil && w > 0 {
			return strconv.Itoa(w)
		}
	}
	return strconv.Itoa(DefaultMaxWidth)
}
