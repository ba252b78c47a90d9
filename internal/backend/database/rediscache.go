package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statsCacheKey      = "animal-pictures:stats"
	statsGenerationKey = "animal-pictures:stats:generation"
)

// CachedDatabaseService keeps CountPicturesByAnimal results in Redis under a key that carries the
// current stats generation. Every write through this service bumps the generation, so a read that
// loaded counts before the write stores them under a key nobody reads anymore. Redis failures are
// logged and the call falls through to the wrapped service.
type CachedDatabaseService struct {
	DatabaseService
	client *redis.Client
	ttl    time.Duration
}

func NewCachedDatabaseService(inner DatabaseService, client *redis.Client, ttl time.Duration) *CachedDatabaseService {
	return &CachedDatabaseService{
		DatabaseService: inner,
		client:          client,
		ttl:             ttl,
	}
}

func (s *CachedDatabaseService) InsertPicture(ctx context.Context, picture *Picture) (int64, error) {
	id, err := s.DatabaseService.InsertPicture(ctx, picture)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	return id, nil
}

func (s *CachedDatabaseService) DeleteAllPictures(ctx context.Context) (int64, error) {
	deleted, err := s.DatabaseService.DeleteAllPictures(ctx)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	return deleted, nil
}

func (s *CachedDatabaseService) CountPicturesByAnimal(ctx context.Context) (*PictureStats, error) {
	key, err := s.statsKey(ctx)
	if err != nil {
		slog.Warn("stats cache: generation read failed", "error", err)
		return s.DatabaseService.CountPicturesByAnimal(ctx)
	}

	cached, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var stats PictureStats
		if jsonErr := json.Unmarshal(cached, &stats); jsonErr == nil {
			return &stats, nil
		}
		slog.Warn("stats cache: discarding undecodable entry", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("stats cache: read failed", "error", err)
	}

	stats, err := s.DatabaseService.CountPicturesByAnimal(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(stats); err == nil {
		if err := s.client.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
			slog.Warn("stats cache: write failed", "error", err)
		}
	}
	return stats, nil
}

func (s *CachedDatabaseService) Close() error {
	cacheErr := s.client.Close()
	if err := s.DatabaseService.Close(); err != nil {
		return err
	}
	return cacheErr
}

// statsKey returns the cache key for the current generation; a missing generation counts as 0.
func (s *CachedDatabaseService) statsKey(ctx context.Context) (string, error) {
	generation, err := s.client.Get(ctx, statsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		generation, err = 0, nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", statsCacheKey, generation), nil
}

func (s *CachedDatabaseService) invalidate(ctx context.Context) {
	if err := s.client.Incr(ctx, statsGenerationKey).Err(); err != nil {
		slog.Warn("stats cache: invalidation failed", "error", err)
	}
}
