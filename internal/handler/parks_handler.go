package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bounceheads/directory/internal/dto"
	"github.com/bounceheads/directory/internal/repository"
	"github.com/bounceheads/directory/internal/service"
)

// DefaultNearbyRadiusKm applies when radius_km is omitted.
const DefaultNearbyRadiusKm = 50

// ParksHandler exposes the public directory endpoints.
type ParksHandler struct {
	service *service.ParksService
}

// NewParksHandler creates a new handler instance.
func NewParksHandler(service *service.ParksService) *ParksHandler {
	return &ParksHandler{service: service}
}

// List handles GET /parks requests.
func (h *ParksHandler) List(c echo.Context) error {
	filter := dto.ParkFilter{
		State:   strings.TrimSpace(c.QueryParam("state")),
		City:    strings.TrimSpace(c.QueryParam("city")),
		Metro:   strings.TrimSpace(c.QueryParam("metro")),
		Search:  strings.TrimSpace(c.QueryParam("search")),
		Page:    parseIntDefault(c.QueryParam("page"), 1),
		PerPage: parseIntDefault(c.QueryParam("per_page"), dto.DefaultPerPage),
	}.Normalize()

	parks, total, err := h.service.ListParks(c.Request().Context(), filter)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list parks")
	}

	return Page(c, "parks retrieved", newParkViews(parks), Meta{
		Page:    filter.Page,
		PerPage: filter.PerPage,
		Total:   total,
	})
}

// Nearby handles GET /parks/nearby requests.
func (h *ParksHandler) Nearby(c echo.Context) error {
	if c.QueryParam("lat") == "" || c.QueryParam("lng") == "" {
		return Error(c, http.StatusBadRequest, "lat and lng are required")
	}

	query := dto.NearbyQuery{RadiusKm: DefaultNearbyRadiusKm}
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &query); err != nil {
		return Error(c, http.StatusBadRequest, "invalid coordinates")
	}
	if err := c.Validate(&query); err != nil {
		return Error(c, http.StatusBadRequest, firstViolation(err))
	}

	parks, err := h.service.Nearby(c.Request().Context(), query)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to find nearby parks")
	}
	return Success(c, http.StatusOK, "nearby parks retrieved", newNearbyViews(parks))
}

// Get handles GET /parks/:slug requests.
func (h *ParksHandler) Get(c echo.Context) error {
	park, err := h.service.GetPark(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, repository.ErrParkNotFound) {
			return Error(c, http.StatusNotFound, "park not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to load park")
	}
	return Success(c, http.StatusOK, "park retrieved", newParkView(*park))
}

func parseIntDefault(input string, fallback int) int {
	if input == "" {
		return fallback
	}
	if value, err := strconv.Atoi(input); err == nil {
		return value
	}
	return fallback
}
