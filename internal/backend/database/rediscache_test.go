package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*CachedDatabaseService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	cached := NewCachedDatabaseService(newTestDB(t), client, time.Minute)
	t.Cleanup(func() { _ = client.Close() })
	return cached, mr
}

// currentStatsKey mirrors statsKey by reading the generation straight from miniredis.
func currentStatsKey(mr *miniredis.Miniredis) string {
	generation, err := mr.Get(statsGenerationKey)
	if err != nil {
		generation = "0"
	}
	return statsCacheKey + ":" + generation
}

func TestCachedDatabaseService_CachesStats(t *testing.T) {
	cached, mr := newTestCache(t)
	ctx := context.Background()

	insertTestPicture(t, cached, "cat", []byte("a"))

	stats, err := cached.CountPicturesByAnimal(ctx)
	if err != nil {
		t.Fatalf("CountPicturesByAnimal error: %v", err)
	}
	if stats.Cat != 1 || stats.Total != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if key := currentStatsKey(mr); !mr.Exists(key) {
		t.Fatalf("expected %s to be cached", key)
	}

	// a write behind the cache's back is not visible until the entry expires
	insertTestPicture(t, cached.DatabaseService, "dog", []byte("b"))
	stats, err = cached.CountPicturesByAnimal(ctx)
	if err != nil {
		t.Fatalf("CountPicturesByAnimal error: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("expected cached total 1, got %d", stats.Total)
	}

	mr.FastForward(2 * time.Minute)
	stats, err = cached.CountPicturesByAnimal(ctx)
	if err != nil {
		t.Fatalf("CountPicturesByAnimal error: %v", err)
	}
	if stats.Dog != 1 || stats.Total != 2 {
		t.Errorf("expected refreshed stats after ttl, got %+v", stats)
	}
}

func TestCachedDatabaseService_WritesInvalidate(t *testing.T) {
	cached, mr := newTestCache(t)
	ctx := context.Background()

	if _, err := cached.CountPicturesByAnimal(ctx); err != nil {
		t.Fatalf("CountPicturesByAnimal error: %v", err)
	}
	insertTestPicture(t, cached, "bear", []byte("a"))
	if mr.Exists(currentStatsKey(mr)) {
		t.Fatalf("expected insert to drop the cached stats")
	}

	stats, err := cached.CountPicturesByAnimal(ctx)
	if err != nil {
		t.Fatalf("CountPicturesByAnimal error: %v", err)
	}
	if stats.Bear != 1 {
		t.Errorf("expected bear=1, got %+v", stats)
	}

	deleted, err := cached.DeleteAllPictures(ctx)
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteAllPictures = %d, %v; want 1, nil", deleted, err)
	}
	if mr.Exists(currentStatsKey(mr)) {
		t.Fatalf("expected delete to drop the cached stats")
	}
}

func TestCachedDatabaseService_RedisDownFallsThrough(t *testing.T) {
	cached, mr := newTestCache(t)
	mr.Close()

	id := insertTestPicture(t, cached, "cat", []byte("a"))
	if id == 0 {
		t.Fatal("expected insert to succeed without redis")
	}
	stats, err := cached.CountPicturesByAnimal(context.Background())
	if err != nil {
		t.Fatalf("CountPicturesByAnimal error: %v", err)
	}
	if stats.Cat != 1 || stats.Total != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// pausingStore loads counts, then blocks until released, once.
type pausingStore struct {
	DatabaseService
	loaded  chan struct{}
	release chan struct{}
}

func (p *pausingStore) CountPicturesByAnimal(ctx context.Context) (*PictureStats, error) {
	stats, err := p.DatabaseService.CountPicturesByAnimal(ctx)
	if p.loaded != nil {
		loaded := p.loaded
		p.loaded = nil
		close(loaded)
		<-p.release
	}
	return stats, err
}

func TestCachedDatabaseService_WriteDuringSlowReadIsNotMasked(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := &pausingStore{
		DatabaseService: newTestDB(t),
		loaded:          make(chan struct{}),
		release:         make(chan struct{}),
	}
	loaded := store.loaded
	cached := NewCachedDatabaseService(store, client, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	var slowStats *PictureStats
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowStats, slowErr = cached.CountPicturesByAnimal(ctx)
	}()

	<-loaded
	insertTestPicture(t, cached, "cat", []byte("a"))
	close(store.release)
	wg.Wait()

	if slowErr != nil {
		t.Fatalf("slow CountPicturesByAnimal error: %v", slowErr)
	}
	if slowStats.Total != 0 {
		t.Fatalf("expected the slow read to see the old counts, got %+v", slowStats)
	}

	stats, err := cached.CountPicturesByAnimal(ctx)
	if err != nil {
		t.Fatalf("CountPicturesByAnimal error: %v", err)
	}
	if stats.Cat != 1 || stats.Total != 1 {
		t.Errorf("expected stats to include the insert, got %+v", stats)
	}
}
