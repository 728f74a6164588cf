// Package ingest maps upstream place records from either API version into a
// single intermediate shape.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingID is returned for records without an upstream identifier.
var ErrMissingID = errors.New("place has no id")

// Shape identifies which upstream API produced a record.
type Shape string

const (
	ShapeLegacy Shape = "legacy"
	ShapeV1     Shape = "v1"
)

// Place is the shape-independent intermediate record. Optional upstream
// fields map to zero values, except Rating and ReviewCount which stay nil
// when absent because "no rating" differs from a rating of 0.
type Place struct {
	Shape            Shape
	ID               string
	Name             string
	FormattedAddress string
	Latitude         float64
	Longitude        float64
	Rating           *float64
	ReviewCount      *int
	BusinessStatus   string
	Types            []string
	Phone            string
	Website          string
	WeekdayText      []string
	Photos           []json.RawMessage
	Summary          string
}

type legacyPlace struct {
	PlaceID          string `json:"place_id"`
	ID               string `json:"id"`
	Name             string `json:"name"`
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Rating               *float64          `json:"rating"`
	UserRatingsTotal     *int              `json:"user_ratings_total"`
	BusinessStatus       string            `json:"business_status"`
	Types                []string          `json:"types"`
	FormattedPhoneNumber string            `json:"formatted_phone_number"`
	Website              string            `json:"website"`
	OpeningHours         *legacyHours      `json:"opening_hours"`
	Photos               []json.RawMessage `json:"photos"`
	EditorialSummary     *struct {
		Overview string `json:"overview"`
	} `json:"editorial_summary"`
}

type legacyHours struct {
	WeekdayText []string `json:"weekday_text"`
}

type v1Place struct {
	ID          string `json:"id"`
	DisplayName *struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	Location         *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Rating              *float64          `json:"rating"`
	UserRatingCount     *int              `json:"userRatingCount"`
	BusinessStatus      string            `json:"businessStatus"`
	Types               []string          `json:"types"`
	NationalPhoneNumber string            `json:"nationalPhoneNumber"`
	WebsiteURI          string            `json:"websiteUri"`
	RegularOpeningHours *v1Hours          `json:"regularOpeningHours"`
	Photos              []json.RawMessage `json:"photos"`
	EditorialSummary    *struct {
		Text string `json:"text"`
	} `json:"editorialSummary"`
}

type v1Hours struct {
	WeekdayDescriptions []string `json:"weekdayDescriptions"`
}

// v1Keys only occur in v1 records.
var v1Keys = []string{"displayName", "formattedAddress", "location", "userRatingCount", "regularOpeningHours", "websiteUri"}

// DetectShape decides which API a raw record came from. A record carrying any
// v1-only camelCase field is v1; everything else is read as legacy.
func DetectShape(raw json.RawMessage) (Shape, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return "", fmt.Errorf("decode place: %w", err)
	}
	if _, ok := keys["place_id"]; ok {
		return ShapeLegacy, nil
	}
	for _, k := range v1Keys {
		if _, ok := keys[k]; ok {
			return ShapeV1, nil
		}
	}
	return ShapeLegacy, nil
}

// Decode maps one raw record. It fails only on invalid JSON or a missing id.
func Decode(raw json.RawMessage) (Place, error) {
	shape, err := DetectShape(raw)
	if err != nil {
		return Place{}, err
	}

	var p Place
	switch shape {
	case ShapeV1:
		p, err = decodeV1(raw)
	default:
		p, err = decodeLegacy(raw)
	}
	if err != nil {
		return Place{}, err
	}
	if p.ID == "" {
		return Place{}, ErrMissingID
	}
	if p.Types == nil {
		p.Types = []string{}
	}
	return p, nil
}

func decodeLegacy(raw json.RawMessage) (Place, error) {
	var l legacyPlace
	if err := json.Unmarshal(raw, &l); err != nil {
		return Place{}, fmt.Errorf("decode legacy place: %w", err)
	}

	p := Place{
		Shape:            ShapeLegacy,
		ID:               l.PlaceID,
		Name:             l.Name,
		FormattedAddress: l.FormattedAddress,
		Latitude:         l.Geometry.Location.Lat,
		Longitude:        l.Geometry.Location.Lng,
		Rating:           l.Rating,
		ReviewCount:      l.UserRatingsTotal,
		BusinessStatus:   l.BusinessStatus,
		Types:            l.Types,
		Phone:            l.FormattedPhoneNumber,
		Website:          l.Website,
		Photos:           l.Photos,
	}
	// Records converted by earlier runs carry "id" instead of "place_id".
	if p.ID == "" {
		p.ID = l.ID
	}
	if l.OpeningHours != nil {
		p.WeekdayText = l.OpeningHours.WeekdayText
	}
	if l.EditorialSummary != nil {
		p.Summary = l.EditorialSummary.Overview
	}
	return p, nil
}

func decodeV1(raw json.RawMessage) (Place, error) {
	var v v1Place
	if err := json.Unmarshal(raw, &v); err != nil {
		return Place{}, fmt.Errorf("decode v1 place: %w", err)
	}

	p := Place{
		Shape:            ShapeV1,
		ID:               v.ID,
		FormattedAddress: v.FormattedAddress,
		Rating:           v.Rating,
		ReviewCount:      v.UserRatingCount,
		BusinessStatus:   v.BusinessStatus,
		Types:            v.Types,
		Phone:            v.NationalPhoneNumber,
		Website:          v.WebsiteURI,
		Photos:           v.Photos,
	}
	if v.DisplayName != nil {
		p.Name = v.DisplayName.Text
	}
	if v.Location != nil {
		p.Latitude = v.Location.Latitude
		p.Longitude = v.Location.Longitude
	}
	if v.RegularOpeningHours != nil {
		p.WeekdayText = v.RegularOpeningHours.WeekdayDescriptions
	}
	if v.EditorialSummary != nil {
		p.Summary = v.EditorialSummary.Text
	}
	return p, nil
}

type searchResponse struct {
	Places  []json.RawMessage `json:"places"`
	Results []json.RawMessage `json:"results"`
}

// DecodeSearchResponse extracts the raw records from a text search response,
// reading the v1 "places" array or the legacy "results" array.
func DecodeSearchResponse(body []byte) ([]json.RawMessage, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if len(resp.Places) > 0 {
		return resp.Places, nil
	}
	return resp.Results, nil
}

// DecodeAll decodes a batch. Records without an id and records that are not
// JSON objects are counted and skipped; neither aborts the batch.
func DecodeAll(raws []json.RawMessage) (places []Place, missingID, invalid int) {
	places = make([]Place, 0, len(raws))
	for _, raw := range raws {
		p, err := Decode(raw)
		switch {
		case errors.Is(err, ErrMissingID):
			missingID++
		case err != nil:
			invalid++
		default:
			places = append(places, p)
		}
	}
	return places, missingID, invalid
}
