package cache

import (
	"testing"
	"time"

	"midnightmedia/pkg/models"
)

func TestListCache(t *testing.T) {
	cache := NewListCache(time.Minute)
	media := []models.Media{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}

	t.Run("SetAndGet", func(t *testing.T) {
		cache.Set("all", media)

		got, ok := cache.Get("all")
		if !ok {
			t.Fatal("Expected cache hit")
		}
		if len(got) != 2 || got[0].Name != "a" {
			t.Errorf("Unexpected cached media: %v", got)
		}
	})

	t.Run("Miss", func(t *testing.T) {
		if _, ok := cache.Get("absent"); ok {
			t.Error("Expected cache miss")
		}
	})

	t.Run("Invalidate", func(t *testing.T) {
		cache.Set("playlist:1", media)
		cache.Invalidate("playlist:1")

		if _, ok := cache.Get("playlist:1"); ok {
			t.Error("Expected miss after invalidate")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		cache.Set("all", media)
		cache.Clear()

		if _, ok := cache.Get("all"); ok {
			t.Error("Expected miss after clear")
		}
	})
}

func TestListCacheExpiry(t *testing.T) {
	cache := NewListCache(10 * time.Millisecond)
	cache.Set("all", []models.Media{{ID: 1}})

	time.Sleep(25 * time.Millisecond)

	if _, ok := cache.Get("all"); ok {
		t.Error("Expected entry to expire")
	}
}
