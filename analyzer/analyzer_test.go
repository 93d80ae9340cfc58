package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SanaAdeelKhan/geo-gap-compass/stats"
	"github.com/SanaAdeelKhan/geo-gap-compass/store"
)

const page = `<!doctype html>
<html><head>
<title> Acme Running Shoes </title>
<meta name="description" content="Lightweight shoes for every runner.">
<meta property="og:image" content="https://cdn.acme.test/hero.png">
<meta property="og:site_name" content="Acme">
<meta name="viewport" content="width=device-width, initial-scale=1">
</head><body><h1>Acme</h1></body></html>`

const ogOnly = `<html><head>
<meta property="og:title" content="OG Title">
<meta property="og:description" content="OG description">
</head><body></body></html>`

func newSite(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/og", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, ogOnly)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestAnalyze(t *testing.T) {
	srv, _ := newSite(t)
	a := New()
	defer a.Shutdown()

	meta, err := a.Analyze(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Failed to analyze: %v", err)
	}

	if meta.Title != "Acme Running Shoes" {
		t.Errorf("Expected trimmed title, got %q", meta.Title)
	}
	if meta.Description != "Lightweight shoes for every runner." {
		t.Errorf("Unexpected description %q", meta.Description)
	}
	if meta.Image != "https://cdn.acme.test/hero.png" {
		t.Errorf("Unexpected image %q", meta.Image)
	}
	if meta.SiteName != "Acme" {
		t.Errorf("Unexpected site name %q", meta.SiteName)
	}
	if !meta.MobileOptimized {
		t.Error("Expected page to be mobile optimized")
	}
	if meta.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", meta.StatusCode)
	}
}

func TestAnalyze_OpenGraphFallback(t *testing.T) {
	srv, _ := newSite(t)
	a := New()
	defer a.Shutdown()

	meta, err := a.Analyze(context.Background(), srv.URL+"/og")
	if err != nil {
		t.Fatalf("Failed to analyze: %v", err)
	}
	if meta.Title != "OG Title" || meta.Description != "OG description" {
		t.Errorf("Expected Open Graph fallbacks, got %q / %q", meta.Title, meta.Description)
	}
	if meta.MobileOptimized {
		t.Error("Page without viewport should not be mobile optimized")
	}
}

func TestAnalyze_Errors(t *testing.T) {
	srv, _ := newSite(t)
	a := New()
	defer a.Shutdown()

	if _, err := a.Analyze(context.Background(), "  "); err == nil {
		t.Error("Expected an error for an empty domain")
	}
	if _, err := a.Analyze(context.Background(), srv.URL+"/gone"); err == nil {
		t.Error("Expected an error for a non-2xx page")
	}
	if a.IsCached(srv.URL + "/gone") {
		t.Error("Failed lookups must not be cached")
	}
}

func TestPageURL(t *testing.T) {
	tests := map[string]string{
		"nike.com":               "https://nike.com",
		" nike.com/ ":            "https://nike.com",
		"http://localhost:8080/": "http://localhost:8080",
		"https://adidas.com":     "https://adidas.com",
	}
	for in, want := range tests {
		if got := PageURL(in); got != want {
			t.Errorf("PageURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCachePurging(t *testing.T) {
	srv, hits := newSite(t)
	a := New(WithCacheTTL(50 * time.Millisecond))
	defer a.Shutdown()

	if _, err := a.Analyze(context.Background(), srv.URL); err != nil {
		t.Fatalf("Failed to analyze: %v", err)
	}
	if !a.IsCached(srv.URL) {
		t.Error("URL should be cached immediately after analysis")
	}
	if _, err := a.Analyze(context.Background(), srv.URL); err != nil {
		t.Fatalf("Failed to analyze: %v", err)
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Errorf("Expected one fetch while cached, got %d", n)
	}

	time.Sleep(100 * time.Millisecond)

	if a.IsCached(srv.URL) {
		t.Error("URL should not be cached after TTL expiration")
	}
	a.cleanup()
	if n := a.GetCacheStats().Entries; n != 0 {
		t.Errorf("Expected expired entry to be purged, got %d entries", n)
	}
}

func TestCacheSizeLimit(t *testing.T) {
	srv, _ := newSite(t)
	a := New(WithMaxCacheSize(2))
	defer a.Shutdown()

	for _, path := range []string{"/", "/og", "/a"} {
		if _, err := a.Analyze(context.Background(), srv.URL+path); err != nil {
			t.Fatalf("Failed to analyze %s: %v", path, err)
		}
		time.Sleep(time.Millisecond)
	}
	a.cleanup()

	if n := a.GetCacheStats().Entries; n != 2 {
		t.Errorf("Expected cache trimmed to 2 entries, got %d", n)
	}
	if a.IsCached(srv.URL) {
		t.Error("Oldest entry should have been evicted")
	}
}

func TestCacheStatsRecorded(t *testing.T) {
	srv, _ := newSite(t)
	st, err := stats.NewStorage(store.NewMemoryProvider(), nil)
	if err != nil {
		t.Fatalf("Failed to create stats: %v", err)
	}
	defer st.Shutdown()

	a := New(WithStats(st))
	defer a.Shutdown()

	a.Analyze(context.Background(), srv.URL)
	a.Analyze(context.Background(), srv.URL)
	a.Analyze(context.Background(), srv.URL+"/gone")

	cs := a.GetCacheStats()
	if cs.Hits != 1 || cs.Misses != 2 || cs.Failures != 1 {
		t.Errorf("Expected 1 hit, 2 misses, 1 failure; got %+v", cs)
	}
}

func TestConcurrentCacheAccess(t *testing.T) {
	srv, _ := newSite(t)
	a := New()
	defer a.Shutdown()

	concurrency := 50

	var wg sync.WaitGroup
	errChan := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				if _, err := a.Analyze(context.Background(), srv.URL); err != nil {
					errChan <- fmt.Errorf("analyze error: %v", err)
				}
			} else {
				a.IsCached(srv.URL)
			}
		}()
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		t.Errorf("Concurrent access error: %v", err)
	}
	if n := a.GetCacheStats().Entries; n != 1 {
		t.Errorf("Expected a single cache entry, got %d", n)
	}
}
