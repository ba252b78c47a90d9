package frontend

import (
	"log/slog"
	"net/http"

	"github.com/jo-hoe/animal-pictures/internal/backend"
	"github.com/jo-hoe/animal-pictures/internal/backend/response"
	"github.com/jo-hoe/animal-pictures/internal/core"
	"github.com/labstack/echo/v4"
)

const (
	MainPageName = "index.html"
	mimeSVG      = "image/svg+xml"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type indexPage struct {
	BasePath       string
	ThumbnailWidth int
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = NewTemplate()

	e.GET("/", service.indexHandler)
	e.GET("/"+MainPageName, service.indexHandler)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	// The page embeds the base path of this request, so it must not be shared between prefixes
	response.NoCache(ctx)
	return ctx.Render(http.StatusOK, MainPageName, indexPage{
		BasePath:       backend.BasePath(ctx),
		ThumbnailWidth: service.config.ThumbnailWidth,
	})
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return response.Text(ctx, http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return response.Binary(ctx, http.StatusOK, mimeSVG, data)
}
