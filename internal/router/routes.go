package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bounceheads/directory/internal/auth"
	"github.com/bounceheads/directory/internal/config"
	"github.com/bounceheads/directory/internal/handler"
	middlewarepkg "github.com/bounceheads/directory/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Parks  *handler.ParksHandler
	Photos *handler.PhotoHandler
	Admin  *handler.AdminHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})

	e.GET("/parks", handlers.Parks.List)
	e.GET("/parks/nearby", handlers.Parks.Nearby)
	e.GET("/parks/:slug", handlers.Parks.Get)

	proxy := e.Group("/api", middlewarepkg.ClientRateLimiter(cfg.RateLimitPhoto))
	proxy.GET("/photo", handlers.Photos.Photo)
	proxy.GET("/image", handlers.Photos.Image)

	admin := e.Group("/admin", middlewarepkg.JWT(jwtManager), middlewarepkg.RequireRole(auth.RoleAdmin))
	admin.DELETE("/parks", handlers.Admin.RemoveParks)
	admin.POST("/parks/reclassify-metros", handlers.Admin.ReclassifyMetros)
	admin.POST("/upload-csv", handlers.Admin.UploadCSV)
	admin.GET("/stats", handlers.Admin.Stats)
}
