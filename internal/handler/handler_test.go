package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/bounceheads/directory/internal/classify"
	"github.com/bounceheads/directory/internal/config"
	"github.com/bounceheads/directory/internal/dto"
	"github.com/bounceheads/directory/internal/entity"
	"github.com/bounceheads/directory/internal/metro"
	"github.com/bounceheads/directory/internal/photo"
	"github.com/bounceheads/directory/internal/repository"
	"github.com/bounceheads/directory/internal/service"
)

// stubParksRepository serves a fixed park list; methods a test does not need
// fall through to the nil embedded interface and panic.
type stubParksRepository struct {
	repository.ParksRepository
	parks    []entity.Park
	listErr  error
	removed  []string
	upserted []entity.Park
}

func (s *stubParksRepository) List(ctx context.Context, filter dto.ParkFilter) ([]entity.Park, int, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.parks, len(s.parks), nil
}

func (s *stubParksRepository) GetBySlug(ctx context.Context, slug string) (*entity.Park, error) {
	for _, p := range s.parks {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, repository.ErrParkNotFound
}

func (s *stubParksRepository) All(ctx context.Context) ([]entity.Park, error) {
	return s.parks, nil
}

func (s *stubParksRepository) Count(ctx context.Context) (int, error) {
	return len(s.parks), nil
}

func (s *stubParksRepository) CountWithImages(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *stubParksRepository) CountBy(ctx context.Context, field string) ([]dto.CountRow, error) {
	return []dto.CountRow{}, nil
}

func (s *stubParksRepository) DeleteByIDs(ctx context.Context, ids []string) ([]string, error) {
	s.removed = append(s.removed, ids...)
	return ids, nil
}

func (s *stubParksRepository) DeleteByNames(ctx context.Context, names []string) ([]string, error) {
	s.removed = append(s.removed, names...)
	return names, nil
}

func (s *stubParksRepository) SlugOwners(ctx context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (s *stubParksRepository) Upsert(ctx context.Context, park *entity.Park) error {
	s.upserted = append(s.upserted, *park)
	return nil
}

func newTestService(repo repository.ParksRepository) *service.ParksService {
	cfg := config.Pipeline{HomeState: "Texas", TargetState: "Texas", MaxPhotos: 5, PhotoMaxWidth: 800, CheckPersistedSlugs: true}
	return service.NewParksService(repo, cfg, classify.DefaultRules(), metro.DefaultTables(), nil)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	return e
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) (APIResponse, map[string]any) {
	t.Helper()
	var raw struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to decode response: %v (%s)", err, rec.Body.String())
	}
	var data map[string]any
	_ = json.Unmarshal(raw.Data, &data)
	return raw.APIResponse, data
}

func sampleParks() []entity.Park {
	return []entity.Park{
		{
			ID: "p1", Name: "Sky Zone", Slug: "sky-zone", City: "Austin", State: "Texas",
			MetroArea: "Austin Metro", Latitude: 30.2672, Longitude: -97.7431,
			Images: photo.Images{
				{Path: photo.MediaURL("p1", "AciIO2abc", 800)},
				{Path: "https://storage.googleapis.com/bounce-heads-images/images/parks/sky-zone/1.jpg"},
				{Path: photo.Placeholder},
			},
		},
		{ID: "p2", Name: "Bounce House Rentals", Slug: "bounce-house-rentals", City: "Katy", State: "Texas"},
	}
}

func TestParksHandler_List(t *testing.T) {
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/parks?page=0&per_page=500", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewParksHandler(newTestService(&stubParksRepository{parks: sampleParks()}))
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Data []struct {
			Slug      string   `json:"slug"`
			MetroArea string   `json:"metroArea"`
			Images    []string `json:"images"`
		} `json:"data"`
		Meta Meta `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Meta.Page != 1 || payload.Meta.PerPage != dto.MaxPerPage {
		t.Fatalf("unexpected meta: %+v", payload.Meta)
	}
	if len(payload.Data) != 1 || payload.Data[0].Slug != "sky-zone" {
		t.Fatalf("expected rentals hidden, got %+v", payload.Data)
	}
	park := payload.Data[0]
	if park.MetroArea != metro.AustinMetro {
		t.Fatalf("expected consolidated metro, got %q", park.MetroArea)
	}
	if len(park.Images) != 2 {
		t.Fatalf("expected placeholder dropped, got %v", park.Images)
	}
	if !strings.HasPrefix(park.Images[0], "/api/photo?") || !strings.Contains(park.Images[0], "placeId=p1") {
		t.Fatalf("expected photo proxy url, got %s", park.Images[0])
	}
	if !strings.HasPrefix(park.Images[1], "/api/image?url=") {
		t.Fatalf("expected image proxy url, got %s", park.Images[1])
	}
	if strings.Contains(rec.Body.String(), "googleapis.com/v1") {
		t.Fatalf("upstream fetch urls must not leak: %s", rec.Body.String())
	}
}

func TestParksHandler_ListError(t *testing.T) {
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodGet, "/parks", nil)
	rec := httptest.NewRecorder()

	h := NewParksHandler(newTestService(&stubParksRepository{listErr: context.DeadlineExceeded}))
	_ = h.List(e.NewContext(req, rec))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestParksHandler_Get(t *testing.T) {
	e := newTestEcho()
	h := NewParksHandler(newTestService(&stubParksRepository{parks: sampleParks()}))

	req := httptest.NewRequest(http.MethodGet, "/parks/sky-zone", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("slug")
	c.SetParamValues("sky-zone")
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, data := decodeResponse(t, rec)
	if rec.Code != http.StatusOK || resp.Status != "success" || data["slug"] != "sky-zone" {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/parks/missing", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("slug")
	c.SetParamValues("missing")
	_ = h.Get(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestParksHandler_Nearby(t *testing.T) {
	e := newTestEcho()
	h := NewParksHandler(newTestService(&stubParksRepository{parks: sampleParks()}))

	tests := map[string]struct {
		query      string
		expectCode int
		expectLen  int
	}{
		"missing coordinates": {query: "lat=30.2", expectCode: http.StatusBadRequest},
		"bad latitude":        {query: "lat=123&lng=-97.7", expectCode: http.StatusBadRequest},
		"not a number":        {query: "lat=abc&lng=-97.7", expectCode: http.StatusBadRequest},
		"default radius":      {query: "lat=30.27&lng=-97.74", expectCode: http.StatusOK, expectLen: 1},
		"tight radius":        {query: "lat=32.77&lng=-96.79&radius_km=10", expectCode: http.StatusOK, expectLen: 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/parks/nearby?"+tt.query, nil)
			rec := httptest.NewRecorder()
			_ = h.Nearby(e.NewContext(req, rec))
			if rec.Code != tt.expectCode {
				t.Fatalf("expected %d, got %d: %s", tt.expectCode, rec.Code, rec.Body.String())
			}
			if tt.expectCode != http.StatusOK {
				return
			}
			var payload struct {
				Data []map[string]any `json:"data"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(payload.Data) != tt.expectLen {
				t.Fatalf("expected %d parks, got %d", tt.expectLen, len(payload.Data))
			}
			if tt.expectLen > 0 {
				if _, ok := payload.Data[0]["distanceKm"]; !ok {
					t.Fatalf("expected distanceKm in %v", payload.Data[0])
				}
			}
		})
	}
}

func TestAdminHandler_RemoveParks(t *testing.T) {
	e := newTestEcho()
	repo := &stubParksRepository{parks: sampleParks()}
	h := NewAdminHandler(newTestService(repo))

	req := httptest.NewRequest(http.MethodDelete, "/admin/parks", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	_ = h.RemoveParks(e.NewContext(req, rec))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty request, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/admin/parks", strings.NewReader(`{"names":["Arcade"]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	if err := h.RemoveParks(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, data := decodeResponse(t, rec)
	if rec.Code != http.StatusOK || data["removed"] != float64(1) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.removed) != 1 || repo.removed[0] != "Arcade" {
		t.Fatalf("unexpected removals: %v", repo.removed)
	}
}

func TestAdminHandler_Stats(t *testing.T) {
	e := newTestEcho()
	h := NewAdminHandler(newTestService(&stubParksRepository{parks: sampleParks()}))

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	rec := httptest.NewRecorder()
	if err := h.Stats(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, data := decodeResponse(t, rec)
	if rec.Code != http.StatusOK || data["total"] != float64(2) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
}

func multipartRequest(t *testing.T, field, filename, content string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/upload-csv", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req, httptest.NewRecorder()
}

func TestAdminHandler_UploadCSV(t *testing.T) {
	e := newTestEcho()

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/upload-csv", nil)
		rec := httptest.NewRecorder()
		_ = NewAdminHandler(newTestService(&stubParksRepository{})).UploadCSV(e.NewContext(req, rec))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("invalid csv", func(t *testing.T) {
		req, rec := multipartRequest(t, "file", "parks.csv", "name,address\nSky Zone,Main St\n")
		_ = NewAdminHandler(newTestService(&stubParksRepository{})).UploadCSV(e.NewContext(req, rec))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for invalid csv, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "place_id") {
			t.Fatalf("expected missing column in message, got %s", rec.Body.String())
		}
	})

	t.Run("success", func(t *testing.T) {
		csv := "place_id,name,address,lat,lng,rating,review_count,keep\n" +
			"p9,Urban Air,\"1 Main St, Plano, TX 75024, USA\",33.0,-96.7,4.2,80,TRUE\n" +
			"p10,Other,\"2 Main St, Plano, TX 75024, USA\",,,,,FALSE\n"
		req, rec := multipartRequest(t, "file", "parks.csv", csv)
		repo := &stubParksRepository{}
		if err := NewAdminHandler(newTestService(repo)).UploadCSV(e.NewContext(req, rec)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(repo.upserted) != 1 || repo.upserted[0].MetroArea != metro.DallasFortWorth {
			t.Fatalf("unexpected upserts: %+v", repo.upserted)
		}
	})
}
