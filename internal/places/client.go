// Package places talks to the Google Places API.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bounceheads/directory/internal/ingest"
)

const (
	DefaultBaseURL    = "https://places.googleapis.com/v1"
	DefaultMaxResults = 20

	searchFieldMask  = "places.id,places.displayName,places.formattedAddress,places.location,places.rating,places.userRatingCount,places.businessStatus,places.types"
	detailsFieldMask = "id,displayName,formattedAddress,location,nationalPhoneNumber,websiteUri,regularOpeningHours,rating,userRatingCount,photos,types,editorialSummary"
	photosFieldMask  = "photos"
)

// LatLng is a point in degrees.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Rect is a search restriction rectangle.
type Rect struct {
	Low  LatLng `json:"low"`
	High LatLng `json:"high"`
}

// APIError is a non-2xx upstream response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("places api: status %d: %s", e.StatusCode, e.Message)
}

// Media is a fetched photo.
type Media struct {
	Body        []byte
	ContentType string
}

// Client calls the Places API. The API key is only ever added to outgoing
// requests, never to returned URLs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// NewClient builds a client. Empty baseURL means DefaultBaseURL.
func NewClient(httpClient *http.Client, baseURL, apiKey string, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}
}

type searchRequest struct {
	TextQuery           string `json:"textQuery"`
	LocationRestriction struct {
		Rectangle Rect `json:"rectangle"`
	} `json:"locationRestriction"`
	MaxResultCount int `json:"maxResultCount"`
}

// SearchText runs a text search restricted to rect and returns the raw results.
func (c *Client) SearchText(ctx context.Context, query string, rect Rect) ([]json.RawMessage, error) {
	payload := searchRequest{TextQuery: query, MaxResultCount: DefaultMaxResults}
	payload.LocationRestriction.Rectangle = rect

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-FieldMask", searchFieldMask)

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return ingest.DecodeSearchResponse(data)
}

// Details fetches the full record for one place.
func (c *Client) Details(ctx context.Context, placeID string) (json.RawMessage, error) {
	req, err := c.newPlaceRequest(ctx, placeID, detailsFieldMask)
	if err != nil {
		return nil, err
	}
	data, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// PhotoMetadata fetches only the photo descriptors of a place.
func (c *Client) PhotoMetadata(ctx context.Context, placeID string) ([]json.RawMessage, error) {
	req, err := c.newPlaceRequest(ctx, placeID, photosFieldMask)
	if err != nil {
		return nil, err
	}
	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Photos []json.RawMessage `json:"photos"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("could not decode photo metadata: %w", err)
	}
	return resp.Photos, nil
}

// FetchMedia downloads photo bytes from a legacy or v1 fetch URL.
func (c *Client) FetchMedia(ctx context.Context, rawURL string) (*Media, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid media url: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create media request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("media request failed", zap.Error(err))
		return nil, fmt.Errorf("media request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: extractAPIError(resp.Body)}
		c.logger.Warn("media request rejected", zap.Int("status_code", resp.StatusCode), zap.String("message", apiErr.Message))
		return nil, apiErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read media: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return &Media{Body: body, ContentType: contentType}, nil
}

func (c *Client) newPlaceRequest(ctx context.Context, placeID, fieldMask string) (*http.Request, error) {
	endpoint := c.baseURL + "/places/" + url.PathEscape(placeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create place request: %w", err)
	}
	req.Header.Set("X-Goog-FieldMask", fieldMask)
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	c.logger.Debug("calling places api", zap.String("method", req.Method), zap.String("path", req.URL.Path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("places request failed", zap.String("path", req.URL.Path), zap.Error(err))
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: extractAPIError(resp.Body)}
		c.logger.Warn("places api returned error",
			zap.String("path", req.URL.Path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return nil, apiErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read places response: %w", err)
	}
	return data, nil
}

// extractAPIError pulls the message out of a v1 or legacy error body.
func extractAPIError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "places api returned an error"
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error.Message != "" {
			return payload.Error.Message
		}
		if payload.ErrorMessage != "" {
			return payload.ErrorMessage
		}
	}
	return strings.TrimSpace(string(data))
}
