package photo

import "encoding/json"

// Image is the persisted shape of one park photo.
type Image struct {
	Path               string        `json:"path"`
	Width              int           `json:"width,omitempty"`
	Height             int           `json:"height,omitempty"`
	AuthorAttributions []Attribution `json:"authorAttributions,omitempty"`
}

// Images is an ordered photo list; order is display order.
type Images []Image

// UnmarshalJSON accepts every shape parks have been stored with over time:
// bare strings, v1 descriptors with a "name" field and path objects. Each is
// normalized the same way the builder does it.
func (img *Image) UnmarshalJSON(data []byte) error {
	*img = defaultResolver.Resolve(Detect(data))
	return nil
}

// MarshalJSON encodes a nil list as [].
func (images Images) MarshalJSON() ([]byte, error) {
	if images == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Image(images))
}

// Paths returns the stored paths in order.
func (images Images) Paths() []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.Path
	}
	return out
}

// HasLocal reports whether any image still points at a local path.
func (images Images) HasLocal() bool {
	for _, img := range images {
		if DetectString(img.Path).Kind == KindLocal && img.Path != Placeholder {
			return true
		}
	}
	return false
}
