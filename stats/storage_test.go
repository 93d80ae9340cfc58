package stats

import (
	"errors"
	"testing"
	"time"

	"github.com/SanaAdeelKhan/geo-gap-compass/store"
)

type brokenProvider struct{ *store.MemoryProvider }

func (brokenProvider) Get(string) ([]byte, error) { return nil, errors.New("unreachable") }

func TestStorage(t *testing.T) {
	p := store.NewMemoryProvider()

	storage, err := NewStorage(p, nil)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Shutdown()

	t.Run("IncrementStats", func(t *testing.T) {
		storage.IncrementStats(1, 2, 3)
		stats := storage.GetCurrentStats()

		if stats.CacheHits != 1 {
			t.Errorf("Expected 1 cache hit, got %d", stats.CacheHits)
		}
		if stats.CacheMisses != 2 {
			t.Errorf("Expected 2 cache misses, got %d", stats.CacheMisses)
		}
		if stats.FetchFailures != 3 {
			t.Errorf("Expected 3 fetch failures, got %d", stats.FetchFailures)
		}
	})

	t.Run("Persistence", func(t *testing.T) {
		if err := storage.save(); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}

		storage2, err := NewStorage(p, nil)
		if err != nil {
			t.Fatalf("Failed to create second storage: %v", err)
		}
		defer storage2.Shutdown()

		stats := storage2.GetCurrentStats()
		if stats.CacheHits != 1 {
			t.Errorf("Expected 1 cache hit after reload, got %d", stats.CacheHits)
		}
	})

	t.Run("MonthlyStats", func(t *testing.T) {
		month := time.Now().Format("2006-01")
		stats, exists := storage.GetMonthlyStats(month)
		if !exists {
			t.Fatal("Expected stats for current month")
		}
		if stats.CacheHits != 1 {
			t.Errorf("Expected 1 cache hit for current month, got %d", stats.CacheHits)
		}

		if _, exists := storage.GetMonthlyStats("1999-01"); exists {
			t.Error("Expected no stats for 1999-01")
		}
	})
}

func TestStorage_Cleanup(t *testing.T) {
	storage, err := NewStorage(store.NewMemoryProvider(), nil)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Shutdown()

	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{now.AddDate(0, -3, 0), now.AddDate(0, -1, 0), now} {
		storage.now = func() time.Time { return at }
		storage.IncrementStats(1, 0, 0)
	}
	storage.now = func() time.Time { return now }

	months := storage.GetAllMonths()
	want := []string{"2026-10", "2026-09", "2026-07"}
	if len(months) != len(want) {
		t.Fatalf("Expected %v, got %v", want, months)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Errorf("Expected month %d to be %s, got %s", i, want[i], months[i])
		}
	}

	storage.Cleanup(2)

	months = storage.GetAllMonths()
	if len(months) != 2 || months[0] != "2026-10" || months[1] != "2026-09" {
		t.Errorf("Expected current and previous month, got %v", months)
	}
}

func TestStorage_ShutdownFlushes(t *testing.T) {
	p := store.NewMemoryProvider()
	storage, err := NewStorage(p, nil)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	storage.IncrementStats(0, 1, 0)
	if err := storage.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := storage.Shutdown(); err != nil {
		t.Fatalf("Second shutdown failed: %v", err)
	}

	data, _ := p.Get(Key)
	if len(data) == 0 {
		t.Error("Expected counters to be flushed on shutdown")
	}
}

func TestStorage_LoadError(t *testing.T) {
	if _, err := NewStorage(brokenProvider{store.NewMemoryProvider()}, nil); err == nil {
		t.Error("Expected an error when the provider cannot be read")
	}
}
