package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jo-hoe/animal-pictures/internal/backend/database"
	"github.com/jo-hoe/animal-pictures/internal/backend/imagesource"
	"github.com/jo-hoe/animal-pictures/internal/backend/metrics"
	"github.com/jo-hoe/animal-pictures/internal/backend/thumbnail"
	"github.com/jo-hoe/animal-pictures/internal/common"
	"github.com/redis/go-redis/v9"
)

var ErrPictureNotFound = errors.New("picture not found")

// ImageSource fetches a single image for an animal from upstream.
type ImageSource interface {
	Fetch(ctx context.Context, animal common.Animal) (*imagesource.FetchedImage, error)
}

// SavedPicture summarizes one picture stored by FetchAndSave.
type SavedPicture struct {
	ID     int64
	Animal common.Animal
}

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	imageSource     ImageSource
}

func NewCoreService(config *ServiceConfig, imageSource ImageSource) (*CoreService, error) {
	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}
	return &CoreService{
		config:          config,
		databaseService: databaseService,
		imageSource:     imageSource,
	}, nil
}

func (service *CoreService) Close() error {
	return service.databaseService.Close()
}

// FetchAndSave fetches and stores count images one after another. A failure stops the batch;
// pictures stored before the failure stay stored and are returned together with the error.
func (service *CoreService) FetchAndSave(ctx context.Context, animal common.Animal, count int) ([]SavedPicture, error) {
	if !animal.IsValid() {
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedAnimal, animal)
	}

	saved := make([]SavedPicture, 0, count)
	for i := 0; i < count; i++ {
		start := time.Now()
		fetched, err := service.imageSource.Fetch(ctx, animal)
		metrics.ObserveFetch(animal.String(), time.Since(start).Seconds())
		if err != nil {
			var upstreamErr *imagesource.UpstreamError
			if errors.As(err, &upstreamErr) {
				metrics.RecordUpstreamFailure(animal.String())
			}
			return saved, fmt.Errorf("fetch %d of %d for %s: %w", i+1, count, animal, err)
		}

		id, err := service.databaseService.InsertPicture(ctx, &database.Picture{
			Animal:    animal.String(),
			Mime:      fetched.Mime,
			Data:      fetched.Bytes,
			SourceURL: fetched.SourceURL,
			CreatedAt: fetched.FetchedAt,
		})
		if err != nil {
			return saved, fmt.Errorf("store %d of %d for %s: %w", i+1, count, animal, err)
		}

		metrics.RecordStored(animal.String())
		slog.Debug("stored picture", "id", id, "animal", animal, "mime", fetched.Mime, "size_bytes", len(fetched.Bytes))
		saved = append(saved, SavedPicture{ID: id, Animal: animal})
	}
	return saved, nil
}

func (service *CoreService) ClearPictures(ctx context.Context) (int64, error) {
	deleted, err := service.databaseService.DeleteAllPictures(ctx)
	if err != nil {
		return 0, err
	}
	metrics.RecordClear(deleted)
	slog.Info("cleared pictures", "deleted", deleted)
	return deleted, nil
}

func (service *CoreService) GetStats(ctx context.Context) (*database.PictureStats, error) {
	return service.databaseService.CountPicturesByAnimal(ctx)
}

func (service *CoreService) GetLastPicture(ctx context.Context, animal common.Animal) (*database.PictureMeta, error) {
	meta, err := service.databaseService.GetLastPictureByAnimal(ctx, animal.String())
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrPictureNotFound
	}
	return meta, nil
}

func (service *CoreService) GetPicture(ctx context.Context, id int64) (*database.Picture, error) {
	picture, err := service.databaseService.GetPictureByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if picture == nil {
		return nil, ErrPictureNotFound
	}
	return picture, nil
}

// GetThumbnail renders a PNG preview of a stored picture; width 0 uses the configured default.
func (service *CoreService) GetThumbnail(ctx context.Context, id int64, width int) ([]byte, error) {
	if width == 0 {
		width = service.config.ThumbnailWidth
	}
	picture, err := service.GetPicture(ctx, id)
	if err != nil {
		return nil, err
	}
	return thumbnail.Render(picture.Data, width)
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)

	if config.Cache.RedisAddress == "" {
		return databaseService, nil
	}
	client := redis.NewClient(&redis.Options{Addr: config.Cache.RedisAddress})
	slog.Info("stats cache enabled", "redis", config.Cache.RedisAddress, "ttl", config.Cache.TTL)
	return database.NewCachedDatabaseService(databaseService, client, config.Cache.TTL), nil
}
