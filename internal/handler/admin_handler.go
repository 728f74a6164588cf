package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bounceheads/directory/internal/dto"
	"github.com/bounceheads/directory/internal/pipeline"
	"github.com/bounceheads/directory/internal/service"
)

// AdminHandler exposes the maintenance endpoints behind the admin role.
type AdminHandler struct {
	parks *service.ParksService
}

// NewAdminHandler wires a handler backed by the parks service.
func NewAdminHandler(parks *service.ParksService) *AdminHandler {
	return &AdminHandler{parks: parks}
}

// uploadResult is the payload of a CSV upload.
type uploadResult struct {
	Import dto.ImportSummary `json:"import"`
	Report pipeline.Report   `json:"report"`
}

// RemoveParks handles DELETE /admin/parks requests.
func (h *AdminHandler) RemoveParks(c echo.Context) error {
	var req dto.RemoveParksRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return Error(c, http.StatusBadRequest, "ids or names are required")
	}

	summary, err := h.parks.RemoveParks(c.Request().Context(), req)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to remove parks")
	}
	return Success(c, http.StatusOK, "parks removed", summary)
}

// ReclassifyMetros handles POST /admin/parks/reclassify-metros requests.
func (h *AdminHandler) ReclassifyMetros(c echo.Context) error {
	summary, err := h.parks.ReclassifyMetros(c.Request().Context())
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to reclassify metros")
	}
	return Success(c, http.StatusOK, "metro areas reclassified", summary)
}

// Stats handles GET /admin/stats requests.
func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.parks.Stats(c.Request().Context())
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to load stats")
	}
	return Success(c, http.StatusOK, "stats retrieved", stats)
}

// UploadCSV handles POST /admin/upload-csv requests.
func (h *AdminHandler) UploadCSV(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return Error(c, http.StatusBadRequest, "missing csv file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Error(c, http.StatusBadRequest, "unable to open file")
	}
	defer file.Close()

	summary, report, err := h.parks.ImportCSV(c.Request().Context(), file)
	if err != nil {
		var validationErr service.CSVValidationError
		if errors.As(err, &validationErr) {
			return Error(c, http.StatusBadRequest, validationErr.Error())
		}
		return Error(c, http.StatusInternalServerError, "failed to process csv")
	}

	return Success(c, http.StatusOK, "parks CSV processed", uploadResult{Import: summary, Report: report})
}
