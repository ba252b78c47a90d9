package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jo-hoe/animal-pictures/internal/backend/imagesource"
	"github.com/jo-hoe/animal-pictures/internal/backend/response"
	"github.com/jo-hoe/animal-pictures/internal/backend/thumbnail"
	"github.com/jo-hoe/animal-pictures/internal/common"
	"github.com/jo-hoe/animal-pictures/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	msgInvalidJSON        = "Invalid JSON body."
	msgInvalidAnimal      = "Invalid animal. Expected one of: cat, dog, bear."
	msgInvalidCount       = "Invalid count."
	msgCountOutOfRange    = "Invalid count. Must be between 1 and 25."
	msgInvalidWidth       = "Invalid width."
	msgNoPicturesYet      = "No pictures stored for this animal yet."
	msgUpstreamFailed     = "Failed to fetch image from upstream."
	msgInternalError      = "Internal Server Error"
	msgUnsupportedPicture = "Unsupported Media Type"
)

type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
}

type savedPictureResponse struct {
	ID       int64  `json:"id"`
	Animal   string `json:"animal"`
	ImageURL string `json:"imageUrl"`
}

type fetchPicturesResponse struct {
	Animal string                 `json:"animal"`
	Count  int                    `json:"count"`
	Saved  []savedPictureResponse `json:"saved"`
}

type clearPicturesResponse struct {
	Deleted int64 `json:"deleted"`
}

type lastPictureResponse struct {
	ID        int64  `json:"id"`
	Animal    string `json:"animal"`
	CreatedAt string `json:"created_at"`
	SourceURL string `json:"source_url"`
	ImageURL  string `json:"imageUrl"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(ctx echo.Context) error {
		return response.Text(ctx, http.StatusOK, "API Service is running")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.POST("/pictures/fetch", s.fetchPicturesHandler)
	api.POST("/pictures/clear", s.clearPicturesHandler)
	api.GET("/stats", s.statsHandler)
	api.GET("/pictures/last", s.lastPictureHandler)
	api.GET("/pictures/:id/image", s.pictureImageHandler)
	api.GET("/pictures/:id/thumbnail", s.pictureThumbnailHandler)
}

func (s *APIService) fetchPicturesHandler(ctx echo.Context) error {
	raw, err := decodeFetchBody(ctx.Request().Body)
	if err != nil {
		slog.Warn("fetchPicturesHandler: invalid body", "status", http.StatusBadRequest, "error", err)
		return response.Error(ctx, http.StatusBadRequest, msgInvalidJSON)
	}

	animalName, _ := raw.Animal.(string)
	animal, err := common.ParseAnimal(animalName)
	if err != nil {
		slog.Warn("fetchPicturesHandler: invalid animal", "status", http.StatusBadRequest, "animal", raw.Animal)
		return response.Error(ctx, http.StatusBadRequest, msgInvalidAnimal)
	}

	count, err := coerceCount(raw.Count)
	if err != nil {
		slog.Warn("fetchPicturesHandler: invalid count", "status", http.StatusBadRequest, "count", raw.Count)
		return response.Error(ctx, http.StatusBadRequest, msgInvalidCount)
	}

	request := &FetchRequest{Animal: animal.String(), Count: count}
	if err := ctx.Validate(request); err != nil {
		slog.Warn("fetchPicturesHandler: count out of range", "status", http.StatusBadRequest, "count", count)
		return response.Error(ctx, http.StatusBadRequest, msgCountOutOfRange)
	}

	// a client disconnect must not abort a batch that already started persisting
	batchCtx := context.WithoutCancel(ctx.Request().Context())
	saved, err := s.coreService.FetchAndSave(batchCtx, animal, request.Count)
	if err != nil {
		return s.failure(ctx, "fetchPicturesHandler", err, "animal", animal, "requested", request.Count, "saved_before_failure", len(saved))
	}

	summaries := make([]savedPictureResponse, 0, len(saved))
	for _, picture := range saved {
		summaries = append(summaries, savedPictureResponse{
			ID:       picture.ID,
			Animal:   picture.Animal.String(),
			ImageURL: pictureImageURL(ctx, picture.ID),
		})
	}

	return response.JSON(ctx, http.StatusOK, fetchPicturesResponse{
		Animal: animal.String(),
		Count:  request.Count,
		Saved:  summaries,
	})
}

func (s *APIService) clearPicturesHandler(ctx echo.Context) error {
	deleted, err := s.coreService.ClearPictures(ctx.Request().Context())
	if err != nil {
		return s.failure(ctx, "clearPicturesHandler", err)
	}
	return response.JSON(ctx, http.StatusOK, clearPicturesResponse{Deleted: deleted})
}

func (s *APIService) statsHandler(ctx echo.Context) error {
	stats, err := s.coreService.GetStats(ctx.Request().Context())
	if err != nil {
		return s.failure(ctx, "statsHandler", err)
	}

	// Prevent caching so the latest counts are always shown
	response.NoCache(ctx)

	return response.JSON(ctx, http.StatusOK, stats)
}

func (s *APIService) lastPictureHandler(ctx echo.Context) error {
	animal, err := common.ParseAnimal(ctx.QueryParam("animal"))
	if err != nil {
		slog.Warn("lastPictureHandler: invalid animal", "status", http.StatusBadRequest, "animal", ctx.QueryParam("animal"))
		return response.Error(ctx, http.StatusBadRequest, msgInvalidAnimal)
	}

	meta, err := s.coreService.GetLastPicture(ctx.Request().Context(), animal)
	if errors.Is(err, core.ErrPictureNotFound) {
		return response.Error(ctx, http.StatusNotFound, msgNoPicturesYet)
	}
	if err != nil {
		return s.failure(ctx, "lastPictureHandler", err, "animal", animal)
	}

	response.NoCache(ctx)

	return response.JSON(ctx, http.StatusOK, lastPictureResponse{
		ID:        meta.ID,
		Animal:    meta.Animal,
		CreatedAt: meta.CreatedAt,
		SourceURL: meta.SourceURL,
		ImageURL:  pictureImageURL(ctx, meta.ID),
	})
}

func (s *APIService) pictureImageHandler(ctx echo.Context) error {
	id, ok := parsePictureID(ctx.Param("id"))
	if !ok {
		return response.NotFound(ctx)
	}

	picture, err := s.coreService.GetPicture(ctx.Request().Context(), id)
	if errors.Is(err, core.ErrPictureNotFound) {
		return response.NotFound(ctx)
	}
	if err != nil {
		return s.failure(ctx, "pictureImageHandler", err, "picture_id", id)
	}

	return response.Binary(ctx, http.StatusOK, picture.Mime, picture.Data)
}

func (s *APIService) pictureThumbnailHandler(ctx echo.Context) error {
	id, ok := parsePictureID(ctx.Param("id"))
	if !ok {
		return response.NotFound(ctx)
	}

	width := 0
	if raw := ctx.QueryParam("width"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > thumbnail.MaxWidth {
			return response.Error(ctx, http.StatusBadRequest, msgInvalidWidth)
		}
		width = parsed
	}

	png, err := s.coreService.GetThumbnail(ctx.Request().Context(), id, width)
	switch {
	case errors.Is(err, core.ErrPictureNotFound):
		return response.NotFound(ctx)
	case errors.Is(err, thumbnail.ErrUnsupportedImage):
		slog.Warn("pictureThumbnailHandler: picture cannot be rendered",
			"status", http.StatusUnsupportedMediaType, "picture_id", id, "error", err)
		return response.Text(ctx, http.StatusUnsupportedMediaType, msgUnsupportedPicture)
	case err != nil:
		return s.failure(ctx, "pictureThumbnailHandler", err, "picture_id", id)
	}

	return response.Binary(ctx, http.StatusOK, "image/png", png)
}

// failure logs err with its context and answers with a generic message only.
func (s *APIService) failure(ctx echo.Context, handler string, err error, attrs ...any) error {
	var upstreamErr *imagesource.UpstreamError
	if errors.As(err, &upstreamErr) {
		slog.Error(handler+": upstream request failed",
			append([]any{"status", http.StatusBadGateway, "error", err}, attrs...)...)
		return response.Error(ctx, http.StatusBadGateway, msgUpstreamFailed)
	}
	slog.Error(handler+": request failed",
		append([]any{"status", http.StatusInternalServerError, "error", err}, attrs...)...)
	return response.Error(ctx, http.StatusInternalServerError, msgInternalError)
}

// parsePictureID accepts digits only; anything else is treated as an unknown picture.
func parsePictureID(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func pictureImageURL(ctx echo.Context, id int64) string {
	return fmt.Sprintf("%s/api/pictures/%d/image", BasePath(ctx), id)
}
