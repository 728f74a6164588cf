package dto

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// ParkFilter contains query parameters for park listing endpoints.
type ParkFilter struct {
	State   string
	City    string
	Metro   string
	Search  string
	Page    int
	PerPage int

	// Rows whose lowercased name or description contains one of these
	// keywords are excluded from both the page and the total.
	ExcludeNameKeywords        []string
	ExcludeDescriptionKeywords []string
}

// Normalize clamps pagination to sane bounds.
func (f ParkFilter) Normalize() ParkFilter {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PerPage <= 0 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	return f
}

// Offset is the row offset of the current page.
func (f ParkFilter) Offset() int {
	n := f.Normalize()
	return (n.Page - 1) * n.PerPage
}

// NearbyQuery selects parks within RadiusKm of a point.
type NearbyQuery struct {
	Latitude  float64 `query:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `query:"lng" validate:"gte=-180,lte=180"`
	RadiusKm  float64 `query:"radius_km" validate:"gte=0,lte=500"`
}

// RemoveParksRequest names parks to delete. Exactly one list is used; IDs win.
type RemoveParksRequest struct {
	IDs   []string `json:"ids" validate:"required_without=Names,dive,required"`
	Names []string `json:"names" validate:"required_without=IDs,dive,required"`
}

// CountRow is one group of a count-by query.
type CountRow struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ParkStats summarises the directory.
type ParkStats struct {
	Total      int        `json:"total"`
	ByState    []CountRow `json:"byState"`
	ByCity     []CountRow `json:"byCity"`
	ByMetro    []CountRow `json:"byMetro"`
	WithImages int        `json:"withImages"`
}

// ImportSummary reports the outcome of a bulk import.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// RemoveSummary reports deleted parks.
type RemoveSummary struct {
	Requested int      `json:"requested"`
	Removed   int      `json:"removed"`
	Names     []string `json:"names"`
	Remaining int      `json:"remaining"`
}

// ReclassifySummary reports metro reclassification.
type ReclassifySummary struct {
	Checked int               `json:"checked"`
	Updated int               `json:"updated"`
	Failed  int               `json:"failed"`
	Changes map[string]string `json:"changes,omitempty"`
}

// TokenResponse contains an issued admin token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// MediaSummary reports a photo maintenance run.
type MediaSummary struct {
	Parks    int   `json:"parks"`
	Updated  int   `json:"updated"`
	Files    int   `json:"files"`
	Bytes    int64 `json:"bytes"`
	NoPhotos int   `json:"noPhotos"`
	Errors   int   `json:"errors"`
}
