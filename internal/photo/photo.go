// Package photo recognizes the photo encodings found in upstream responses and
// in already persisted parks, and turns them into credential-free URLs.
package photo

import (
	"bytes"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

// Kind discriminates the recognized photo encodings.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindLegacy        Kind = "legacy"
	KindPlacesV1      Kind = "places_v1"
	KindLocal         Kind = "local"
	KindObjectStorage Kind = "object_storage"
)

const (
	// Placeholder is served in place of any photo that cannot be recognized.
	Placeholder = "/placeholder-image.svg"
	// ObjectStoragePrefix marks photos that were uploaded to the image bucket.
	ObjectStoragePrefix = "https://storage.googleapis.com/"

	legacyPhotoHost = "maps.googleapis.com"
	legacyPhotoPath = "/maps/api/place/photo"
	placesHost      = "places.googleapis.com"
)

var (
	legacyToken = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	v1MediaPath = regexp.MustCompile(`^/v1/places/([^/]+)/photos/([^/]+)/media$`)
)

// Attribution credits the author of a photo.
type Attribution struct {
	DisplayName string `json:"displayName"`
	URI         string `json:"uri,omitempty"`
	PhotoURI    string `json:"photoUri,omitempty"`
}

// Descriptor is one photo in any of the recognized encodings. Which fields are
// meaningful depends on Kind:
//
//	KindLegacy         Reference
//	KindPlacesV1       PlaceID, PhotoID
//	KindLocal          Path
//	KindObjectStorage  Path
type Descriptor struct {
	Kind         Kind
	Reference    string
	PlaceID      string
	PhotoID      string
	Path         string
	Width        int
	Height       int
	Attributions []Attribution
}

// Name returns the hierarchical v1 resource name, or "" for other kinds.
func (d Descriptor) Name() string {
	if d.Kind != KindPlacesV1 {
		return ""
	}
	return "places/" + d.PlaceID + "/photos/" + d.PhotoID
}

type probe struct {
	Name                string        `json:"name"`
	PhotoReference      string        `json:"photo_reference"`
	PhotoReferenceCamel string        `json:"photoReference"`
	Path                string        `json:"path"`
	Width               int           `json:"width"`
	Height              int           `json:"height"`
	WidthPx             int           `json:"widthPx"`
	HeightPx            int           `json:"heightPx"`
	AuthorAttributions  []Attribution `json:"authorAttributions"`
	HTMLAttributions    []string      `json:"html_attributions"`
}

// Detect classifies one raw JSON photo value. Strings go through DetectString.
// Objects are recognized by a hierarchical "name" field (v1), a
// "photo_reference"/"photoReference" field (legacy) or a "path" field
// (downloaded or uploaded copies). Anything else is KindUnknown.
func Detect(raw json.RawMessage) Descriptor {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Descriptor{Kind: KindUnknown}
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Descriptor{Kind: KindUnknown}
		}
		return DetectString(s)
	case '{':
		var p probe
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return Descriptor{Kind: KindUnknown}
		}
		return p.descriptor()
	default:
		return Descriptor{Kind: KindUnknown}
	}
}

func (p probe) descriptor() Descriptor {
	var d Descriptor
	switch {
	case p.Name != "":
		d = parseName(p.Name)
	case p.PhotoReference != "":
		d = DetectString(p.PhotoReference)
	case p.PhotoReferenceCamel != "":
		d = DetectString(p.PhotoReferenceCamel)
	case p.Path != "":
		d = DetectString(p.Path)
	default:
		return Descriptor{Kind: KindUnknown}
	}
	if d.Kind == KindUnknown {
		return d
	}

	d.Width = firstPositive(p.Width, p.WidthPx, d.Width)
	d.Height = firstPositive(p.Height, p.HeightPx, d.Height)
	d.Attributions = p.AuthorAttributions
	if len(d.Attributions) == 0 {
		for _, html := range p.HTMLAttributions {
			d.Attributions = append(d.Attributions, Attribution{DisplayName: html})
		}
	}
	return d
}

// DetectString classifies a photo stored as a plain string: a local path, an
// object storage URL, a legacy or v1 fetch URL, a v1 resource name or a bare
// legacy reference.
func DetectString(s string) Descriptor {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Descriptor{Kind: KindUnknown}
	case strings.HasPrefix(s, "/"):
		return Descriptor{Kind: KindLocal, Path: s}
	case strings.HasPrefix(s, ObjectStoragePrefix):
		return Descriptor{Kind: KindObjectStorage, Path: stripCredentials(s)}
	case strings.HasPrefix(s, "https://"), strings.HasPrefix(s, "http://"):
		return parseFetchURL(s)
	case strings.HasPrefix(s, "places/"):
		return parseName(s)
	case legacyToken.MatchString(s):
		return Descriptor{Kind: KindLegacy, Reference: s}
	default:
		return Descriptor{Kind: KindUnknown}
	}
}

// IsV1Reference reports whether a bare reference looks like a v1 photo id
// rather than a legacy photo reference.
func IsV1Reference(ref string) bool {
	return strings.HasPrefix(ref, "AciIO2")
}

func parseFetchURL(raw string) Descriptor {
	u, err := url.Parse(raw)
	if err != nil {
		return Descriptor{Kind: KindUnknown}
	}

	switch {
	case u.Host == legacyPhotoHost && u.Path == legacyPhotoPath:
		q := u.Query()
		ref := q.Get("photoreference")
		if ref == "" {
			ref = q.Get("photo_reference")
		}
		if ref == "" {
			return Descriptor{Kind: KindUnknown}
		}
		return Descriptor{Kind: KindLegacy, Reference: ref}
	case u.Host == placesHost:
		m := v1MediaPath.FindStringSubmatch(u.Path)
		if m == nil {
			return Descriptor{Kind: KindUnknown}
		}
		return Descriptor{Kind: KindPlacesV1, PlaceID: m[1], PhotoID: m[2]}
	default:
		return Descriptor{Kind: KindUnknown}
	}
}

// parseName reads "places/{placeId}/photos/{photoId}" with an optional
// trailing "/media".
func parseName(name string) Descriptor {
	parts := strings.Split(strings.TrimSuffix(name, "/media"), "/")
	if len(parts) != 4 || parts[0] != "places" || parts[2] != "photos" || parts[1] == "" || parts[3] == "" {
		return Descriptor{Kind: KindUnknown}
	}
	return Descriptor{Kind: KindPlacesV1, PlaceID: parts[1], PhotoID: parts[3]}
}

func stripCredentials(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	if !q.Has("key") {
		return raw
	}
	q.Del("key")
	u.RawQuery = q.Encode()
	return u.String()
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
