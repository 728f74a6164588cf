package photo

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := map[string]struct {
		raw  string
		want Descriptor
	}{
		"legacy bare reference": {
			raw:  `"AWU5eFjRefToken_123-x"`,
			want: Descriptor{Kind: KindLegacy, Reference: "AWU5eFjRefToken_123-x"},
		},
		"legacy object": {
			raw: `{"photo_reference":"ref1","width":1024,"height":768,"html_attributions":["<a>Jo</a>"]}`,
			want: Descriptor{Kind: KindLegacy, Reference: "ref1", Width: 1024, Height: 768,
				Attributions: []Attribution{{DisplayName: "<a>Jo</a>"}}},
		},
		"v1 descriptor": {
			raw: `{"name":"places/ChIJ1/photos/AciIO2abc","widthPx":4000,"heightPx":3000,"authorAttributions":[{"displayName":"Sam"}]}`,
			want: Descriptor{Kind: KindPlacesV1, PlaceID: "ChIJ1", PhotoID: "AciIO2abc", Width: 4000, Height: 3000,
				Attributions: []Attribution{{DisplayName: "Sam"}}},
		},
		"v1 name string": {
			raw:  `"places/ChIJ1/photos/AciIO2abc"`,
			want: Descriptor{Kind: KindPlacesV1, PlaceID: "ChIJ1", PhotoID: "AciIO2abc"},
		},
		"local path object": {
			raw:  `{"path":"/images/parks/sky-zone/1.jpg","width":800,"height":600}`,
			want: Descriptor{Kind: KindLocal, Path: "/images/parks/sky-zone/1.jpg", Width: 800, Height: 600},
		},
		"local path string": {
			raw:  `"/images/parks/sky-zone/2.png"`,
			want: Descriptor{Kind: KindLocal, Path: "/images/parks/sky-zone/2.png"},
		},
		"object storage": {
			raw:  `{"path":"https://storage.googleapis.com/bounce-heads-images/parks/sky-zone/1.jpg"}`,
			want: Descriptor{Kind: KindObjectStorage, Path: "https://storage.googleapis.com/bounce-heads-images/parks/sky-zone/1.jpg"},
		},
		"legacy fetch url": {
			raw:  `"https://maps.googleapis.com/maps/api/place/photo?maxwidth=400&photoreference=abc&key=SECRET"`,
			want: Descriptor{Kind: KindLegacy, Reference: "abc"},
		},
		"v1 media url": {
			raw:  `"https://places.googleapis.com/v1/places/P1/photos/X1/media?maxHeightPx=800&key=SECRET"`,
			want: Descriptor{Kind: KindPlacesV1, PlaceID: "P1", PhotoID: "X1"},
		},
		"bad v1 name": {
			raw:  `{"name":"places/P1"}`,
			want: Descriptor{Kind: KindUnknown},
		},
		"number":        {raw: `42`, want: Descriptor{Kind: KindUnknown}},
		"empty object":  {raw: `{}`, want: Descriptor{Kind: KindUnknown}},
		"other website": {raw: `"https://example.com/a.jpg"`, want: Descriptor{Kind: KindUnknown}},
		"legacy url without reference": {
			raw:  `"https://maps.googleapis.com/maps/api/place/photo?maxwidth=400"`,
			want: Descriptor{Kind: KindUnknown},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(json.RawMessage(tt.raw)))
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(0, 0)

	legacy := r.Resolve(Descriptor{Kind: KindLegacy, Reference: "ref with/space"})
	assert.Equal(t, "https://maps.googleapis.com/maps/api/place/photo?maxwidth=800&photoreference=ref+with%2Fspace", legacy.Path)

	v1 := r.Resolve(Descriptor{Kind: KindPlacesV1, PlaceID: "P1", PhotoID: "X1", Width: 10})
	assert.Equal(t, Image{
		Path:  "https://places.googleapis.com/v1/places/P1/photos/X1/media?maxHeightPx=800&maxWidthPx=800",
		Width: 10,
	}, v1)

	local := r.Resolve(Descriptor{Kind: KindLocal, Path: "/images/parks/a/1.jpg"})
	assert.Equal(t, "/images/parks/a/1.jpg", local.Path)

	stored := r.Resolve(Descriptor{Kind: KindObjectStorage, Path: ObjectStoragePrefix + "b/a.jpg"})
	assert.Equal(t, ObjectStoragePrefix+"b/a.jpg", stored.Path)

	assert.Equal(t, Image{Path: Placeholder}, r.Resolve(Descriptor{Kind: KindUnknown}))
}

func TestResolver_NeverLeaksKey(t *testing.T) {
	r := NewResolver(5, 800)
	raws := []json.RawMessage{
		json.RawMessage(`"https://maps.googleapis.com/maps/api/place/photo?maxwidth=400&photoreference=abc&key=SECRET"`),
		json.RawMessage(`"https://places.googleapis.com/v1/places/P1/photos/X1/media?key=SECRET"`),
		json.RawMessage(`"https://storage.googleapis.com/bucket/a.jpg?key=SECRET&v=2"`),
	}
	for _, img := range r.ResolveAll(raws) {
		assert.NotContains(t, img.Path, "SECRET")
		assert.NotEmpty(t, img.Path)
	}
}

func TestResolver_ResolveAllKeepsOrderAndTruncates(t *testing.T) {
	r := NewResolver(3, 800)
	raws := []json.RawMessage{
		json.RawMessage(`"/a.jpg"`),
		json.RawMessage(`{"unexpected":true}`),
		json.RawMessage(`"/c.jpg"`),
		json.RawMessage(`"/d.jpg"`),
	}

	got := r.ResolveAll(raws)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"/a.jpg", Placeholder, "/c.jpg"}, got.Paths())
}

func TestResolver_DefaultMaxPhotos(t *testing.T) {
	var ds []Descriptor
	for i := 0; i < 8; i++ {
		ds = append(ds, Descriptor{Kind: KindLegacy, Reference: "r"})
	}
	assert.Len(t, NewResolver(0, 0).ResolveDescriptors(ds), DefaultMaxPhotos)
}

func TestProxyURL(t *testing.T) {
	tests := map[string]struct {
		path string
		want string
	}{
		"object storage": {
			path: "https://storage.googleapis.com/bounce-heads-images/parks/a/1.jpg",
			want: "/api/image?url=https%3A%2F%2Fstorage.googleapis.com%2Fbounce-heads-images%2Fparks%2Fa%2F1.jpg",
		},
		"v1": {
			path: MediaURL("P1", "AciIO2x", 800),
			want: "/api/photo?maxwidth=800&placeId=P1&ref=AciIO2x",
		},
		"legacy": {
			path: "https://maps.googleapis.com/maps/api/place/photo?maxwidth=400&photoreference=abc",
			want: "/api/photo?maxwidth=400&ref=abc",
		},
		"local":   {path: "/images/parks/a/1.jpg", want: "/images/parks/a/1.jpg"},
		"unknown": {path: "ftp://nowhere", want: Placeholder},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProxyURL(Image{Path: tt.path}))
		})
	}
}

func TestProxyURLs_DropsPlaceholders(t *testing.T) {
	got := ProxyURLs(Images{{Path: Placeholder}, {Path: "/x.jpg"}, {Path: "???"}})
	assert.Equal(t, []string{"/x.jpg"}, got)
}

func TestImages_UnmarshalHistoricalShapes(t *testing.T) {
	data := `[
		"legacyRef",
		{"name":"places/P1/photos/X1","widthPx":100,"heightPx":50},
		{"path":"/images/parks/a/1.jpg","width":800,"height":600},
		{"path":"https://storage.googleapis.com/bucket/a/1.jpg"},
		{"mystery":1}
	]`

	var images Images
	require.NoError(t, json.Unmarshal([]byte(data), &images))
	require.Len(t, images, 5)

	assert.True(t, strings.HasSuffix(images[0].Path, "photoreference=legacyRef"))
	assert.Equal(t, Image{Path: MediaURL("P1", "X1", 800), Width: 100, Height: 50}, images[1])
	assert.Equal(t, Image{Path: "/images/parks/a/1.jpg", Width: 800, Height: 600}, images[2])
	assert.Equal(t, "https://storage.googleapis.com/bucket/a/1.jpg", images[3].Path)
	assert.Equal(t, Placeholder, images[4].Path)

	encoded, err := json.Marshal(images)
	require.NoError(t, err)
	var again Images
	require.NoError(t, json.Unmarshal(encoded, &again))
	assert.Equal(t, images, again)
}

func TestImages_MarshalNil(t *testing.T) {
	out, err := json.Marshal(Images(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(out))
}

func TestIsV1Reference(t *testing.T) {
	assert.True(t, IsV1Reference("AciIO2abc"))
	assert.False(t, IsV1Reference("CmRaAAAA"))
}
