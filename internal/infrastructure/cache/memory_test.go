package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/snacksmith/backend/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, opts Options) (*MemoryCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.now = clock.Now
	t.Cleanup(c.Close)
	return c, clock
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache, clock := newTestCache(t, Options{})
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		value   interface{}
		ttl     time.Duration
		expired bool
	}{
		{name: "store and retrieve string", key: "k1", value: "test-value", ttl: time.Minute},
		{name: "store and retrieve map", key: "k2", value: map[string]interface{}{"name": "almonds"}, ttl: time.Minute},
		{name: "expired entry", key: "k3", value: "expires-soon", ttl: time.Millisecond, expired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			if tt.expired {
				clock.Advance(time.Second)
				if _, err := cache.Get(ctx, tt.key); !errors.Is(err, domain.ErrCacheMiss) {
					t.Errorf("expected cache miss after expiration, got %v", err)
				}
				return
			}

			got, err := cache.Get(ctx, tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.value) {
				t.Errorf("Get() = %v, want %v", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_AnalysisIsCopied(t *testing.T) {
	cache, _ := newTestCache(t, Options{})
	ctx := context.Background()

	analysis := &domain.NutritionAnalysis{TotalWeightG: 50, Allergens: []string{"tree_nuts"}}
	if err := cache.Set(ctx, "a", analysis, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	analysis.Allergens[0] = "mutated"

	got, err := cache.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	stored, ok := got.(*domain.NutritionAnalysis)
	if !ok {
		t.Fatalf("Get() returned %T, want *domain.NutritionAnalysis", got)
	}
	if stored.Allergens[0] != "tree_nuts" {
		t.Errorf("stored allergens = %v, want caller mutation isolated", stored.Allergens)
	}

	stored.Allergens[0] = "again"
	again, _ := cache.Get(ctx, "a")
	if again.(*domain.NutritionAnalysis).Allergens[0] != "tree_nuts" {
		t.Error("reader mutation leaked into cache")
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache, _ := newTestCache(t, Options{})

	_, err := cache.Get(context.Background(), "non-existent-key")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache, _ := newTestCache(t, Options{})
	ctx := context.Background()

	if err := cache.Set(ctx, "delete-test", "value", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Delete(ctx, "delete-test"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if _, err := cache.Get(ctx, "delete-test"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() after delete error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Exists(t *testing.T) {
	cache, clock := newTestCache(t, Options{})
	ctx := context.Background()

	if exists, _ := cache.Exists(ctx, "k"); exists {
		t.Error("Exists() = true for missing key")
	}
	if err := cache.Set(ctx, "k", "value", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if exists, _ := cache.Exists(ctx, "k"); !exists {
		t.Error("Exists() = false after Set")
	}
	clock.Advance(2 * time.Minute)
	if exists, _ := cache.Exists(ctx, "k"); exists {
		t.Error("Exists() = true after expiration")
	}
}

func TestMemoryCache_EvictsAtCapacity(t *testing.T) {
	cache, clock := newTestCache(t, Options{MaxEntries: 3})
	ctx := context.Background()

	for i, key := range []string{"a", "b", "c"} {
		ttl := time.Duration(i+1) * time.Minute
		if err := cache.Set(ctx, key, i, ttl); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	// full, nothing expired: the entry closest to expiry goes
	if err := cache.Set(ctx, "d", 3, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if size := cache.Size(); size != 3 {
		t.Errorf("Size() = %d, want 3", size)
	}
	if exists, _ := cache.Exists(ctx, "a"); exists {
		t.Error("expected a to be evicted")
	}

	// expired entries go first
	clock.Advance(150 * time.Second)
	if err := cache.Set(ctx, "e", 4, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if size := cache.Size(); size != 3 {
		t.Errorf("Size() = %d, want 3 after purging b", size)
	}
	if exists, _ := cache.Exists(ctx, "c"); !exists {
		t.Error("expected c to survive when an expired entry was available")
	}
	if got := cache.Stats().Evictions; got != 2 {
		t.Errorf("Evictions = %d, want 2", got)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache, _ := newTestCache(t, Options{})
	ctx := context.Background()

	_ = cache.Set(ctx, "k", "v", time.Minute)
	_, _ = cache.Get(ctx, "k")
	_, _ = cache.Get(ctx, "k")
	_, _ = cache.Get(ctx, "missing")

	got := cache.Stats()
	want := Stats{Entries: 1, Hits: 2, Misses: 1}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache, _ := newTestCache(t, Options{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := cache.Set(ctx, string(rune('a'+i)), i, time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	cache.Clear()
	if size := cache.Size(); size != 0 {
		t.Errorf("Size() = %d, want 0 after clear", size)
	}
}

func TestMemoryCache_SetUnencodable(t *testing.T) {
	cache, _ := newTestCache(t, Options{})

	if err := cache.Set(context.Background(), "ch", make(chan int), time.Minute); err == nil {
		t.Error("Set() with a channel value should fail")
	}
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	cache := NewMemoryCache(Options{CleanupInterval: time.Millisecond}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	cache.Close()
	cache.Close()
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache, _ := newTestCache(t, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := string(rune('a' + id))
			if err := cache.Set(ctx, key, id, time.Minute); err != nil {
				t.Errorf("concurrent Set() error = %v", err)
			}
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("concurrent Get() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}
