package entity

import (
	"time"

	"github.com/bounceheads/directory/internal/photo"
)

// DateLayout is the format of Park.LastUpdated.
const DateLayout = "2006-01-02"

// Park is a trampoline park as stored in the directory. ID is the upstream
// place id; importing the same place again updates it in place.
type Park struct {
	ID               string            `json:"id" validate:"required"`
	Name             string            `json:"name"`
	Slug             string            `json:"slug" validate:"required"`
	Description      *string           `json:"description,omitempty"`
	Street           string            `json:"street"`
	City             string            `json:"city" validate:"required"`
	State            string            `json:"state" validate:"required"`
	ZipCode          *string           `json:"zipCode,omitempty"`
	MetroArea        string            `json:"metroArea" validate:"required"`
	FormattedAddress string            `json:"formattedAddress"`
	Latitude         float64           `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude        float64           `json:"longitude" validate:"gte=-180,lte=180"`
	Phone            *string           `json:"phone,omitempty"`
	Website          *string           `json:"website,omitempty" validate:"omitempty,url"`
	Rating           *float64          `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	ReviewCount      *int              `json:"reviewCount,omitempty" validate:"omitempty,gte=0"`
	Hours            map[string]string `json:"hours"`
	Amenities        []string          `json:"amenities"`
	Features         []string          `json:"features"`
	AgeGroups        []string          `json:"ageGroups"`
	Pricing          map[string]string `json:"pricing"`
	Images           photo.Images      `json:"images"`
	LastUpdated      string            `json:"lastUpdated" validate:"required,datetime=2006-01-02"`
	CreatedAt        time.Time         `json:"createdAt,omitzero"`
	UpdatedAt        time.Time         `json:"updatedAt,omitzero"`
}

// HasCoordinates reports whether the park has a real location; 0,0 means unknown.
func (p Park) HasCoordinates() bool {
	return p.Latitude != 0 || p.Longitude != 0
}

// DescriptionText returns the description or "".
func (p Park) DescriptionText() string {
	if p.Description == nil {
		return ""
	}
	return *p.Description
}

// Normalize replaces nil collections with empty ones so the stored and
// rendered shapes never carry null lists or maps.
func (p *Park) Normalize() {
	if p.Hours == nil {
		p.Hours = map[string]string{}
	}
	if p.Amenities == nil {
		p.Amenities = []string{}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if p.AgeGroups == nil {
		p.AgeGroups = []string{}
	}
	if p.Pricing == nil {
		p.Pricing = map[string]string{}
	}
	if p.Images == nil {
		p.Images = photo.Images{}
	}
}
