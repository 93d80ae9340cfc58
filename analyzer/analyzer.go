// Package analyzer fetches a domain's landing page and extracts the metadata
// used to fill gaps in domain insights.
package analyzer

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/SanaAdeelKhan/geo-gap-compass/stats"
)

// maxBodySize caps how much of a page is read.
const maxBodySize = 2 << 20

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Cache entry with expiration
type cacheEntry struct {
	meta      *PageMeta
	timestamp time.Time
}

// Analyzer looks up page metadata with a TTL cache in front.
type Analyzer struct {
	client          *http.Client
	userAgent       string
	cache           map[string]cacheEntry
	cacheMutex      sync.RWMutex
	cacheTTL        time.Duration
	maxCacheSize    int
	lastCleanup     time.Time
	cleanupInterval time.Duration
	stats           *stats.Storage
	done            chan struct{}
	closeOnce       sync.Once
}

type Option func(*Analyzer)

func WithHTTPClient(c *http.Client) Option {
	return func(a *Analyzer) { a.client = c }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(a *Analyzer) { a.cacheTTL = ttl }
}

func WithMaxCacheSize(n int) Option {
	return func(a *Analyzer) { a.maxCacheSize = n }
}

// WithStats records cache hits, misses and fetch failures per month.
func WithStats(s *stats.Storage) Option {
	return func(a *Analyzer) { a.stats = s }
}

// New creates an Analyzer and starts its cache janitor. Call Shutdown to stop it.
func New(opts ...Option) *Analyzer {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	a := &Analyzer{
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
		userAgent:       "GeoGapCompass/1.0 (+page-metadata)",
		cache:           make(map[string]cacheEntry),
		cacheTTL:        30 * time.Minute,
		maxCacheSize:    1000,
		cleanupInterval: 5 * time.Minute,
		lastCleanup:     time.Now(),
		done:            make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}

	go a.periodicCleanup()

	return a
}

func (a *Analyzer) periodicCleanup() {
	ticker := time.NewTicker(a.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.cleanup()
		case <-a.done:
			return
		}
	}
}

// cleanup removes expired entries and ensures the cache size limit
func (a *Analyzer) cleanup() {
	now := time.Now()

	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()

	for key, entry := range a.cache {
		if now.Sub(entry.timestamp) > a.cacheTTL {
			delete(a.cache, key)
		}
	}

	// still over the limit: drop the oldest entries
	if len(a.cache) > a.maxCacheSize {
		type aged struct {
			key       string
			timestamp time.Time
		}
		entries := make([]aged, 0, len(a.cache))
		for key, entry := range a.cache {
			entries = append(entries, aged{key, entry.timestamp})
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].timestamp.Before(entries[j].timestamp)
		})
		for i := 0; i < len(entries)-a.maxCacheSize; i++ {
			delete(a.cache, entries[i].key)
		}
	}

	a.lastCleanup = now
}

// ClearCache clears the metadata cache
func (a *Analyzer) ClearCache() {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cache = make(map[string]cacheEntry)
}

// generateCacheKey creates a unique key for the URL
func generateCacheKey(url string) string {
	hash := md5.Sum([]byte(url))
	return hex.EncodeToString(hash[:])
}

// GetCacheStats returns statistics about the cache
func (a *Analyzer) GetCacheStats() CacheStats {
	a.cacheMutex.RLock()
	cs := CacheStats{
		Entries:    len(a.cache),
		TTL:        a.cacheTTL,
		MaxEntries: a.maxCacheSize,
	}
	a.cacheMutex.RUnlock()

	if a.stats != nil {
		month := a.stats.GetCurrentStats()
		cs.Hits = month.CacheHits
		cs.Misses = month.CacheMisses
		cs.Failures = month.FetchFailures
	}
	return cs
}

// IsCached checks if a domain is in the cache and not expired
func (a *Analyzer) IsCached(domain string) bool {
	key := generateCacheKey(PageURL(domain))
	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()

	entry, found := a.cache[key]
	return found && time.Since(entry.timestamp) < a.cacheTTL
}

// PageURL turns a bare domain into the URL that is fetched. Values that
// already carry a scheme are used as given.
func PageURL(domain string) string {
	d := strings.TrimSpace(domain)
	if strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://") {
		return strings.TrimRight(d, "/")
	}
	return "https://" + strings.Trim(d, "/")
}

// Analyze returns the metadata of domain's landing page, from cache when fresh.
func (a *Analyzer) Analyze(ctx context.Context, domain string) (*PageMeta, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, fmt.Errorf("domain is required")
	}

	a.cacheMutex.RLock()
	stale := time.Since(a.lastCleanup) > a.cleanupInterval
	a.cacheMutex.RUnlock()
	if stale {
		go a.cleanup()
	}

	url := PageURL(domain)
	key := generateCacheKey(url)

	a.cacheMutex.RLock()
	if entry, found := a.cache[key]; found && time.Since(entry.timestamp) < a.cacheTTL {
		a.cacheMutex.RUnlock()
		a.record(1, 0, 0)
		return entry.meta, nil
	}
	a.cacheMutex.RUnlock()

	a.record(0, 1, 0)

	meta, err := a.fetch(ctx, url)
	if err != nil {
		a.record(0, 0, 1)
		return nil, err
	}

	a.cacheMutex.Lock()
	a.cache[key] = cacheEntry{meta: meta, timestamp: time.Now()}
	a.cacheMutex.Unlock()

	return meta, nil
}

func (a *Analyzer) fetch(ctx context.Context, url string) (*PageMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if _, err := io.Copy(buf, io.LimitReader(resp.Body, maxBodySize)); err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	meta := extract(doc)
	meta.URL = url
	meta.StatusCode = resp.StatusCode
	meta.FetchedAt = time.Now().UTC()
	return meta, nil
}

// extract reads title, description and image, preferring the plain tags and
// falling back to their Open Graph counterparts.
func extract(doc *goquery.Document) *PageMeta {
	meta := &PageMeta{}

	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if meta.Title == "" {
		meta.Title = attr(doc, "meta[property='og:title']")
	}

	meta.Description = attr(doc, "meta[name='description']")
	if meta.Description == "" {
		meta.Description = attr(doc, "meta[property='og:description']")
	}

	meta.Image = attr(doc, "meta[property='og:image']")
	meta.SiteName = attr(doc, "meta[property='og:site_name']")

	meta.Viewport = attr(doc, "meta[name='viewport']")
	meta.MobileOptimized = strings.Contains(strings.ToLower(meta.Viewport), "width=device-width")

	return meta
}

func attr(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

func (a *Analyzer) record(hits, misses, failures int) {
	if a.stats != nil {
		a.stats.IncrementStats(hits, misses, failures)
	}
}

// Shutdown stops the janitor and drops the cache. Stats are owned by the caller.
func (a *Analyzer) Shutdown() error {
	if a == nil {
		return nil
	}
	a.closeOnce.Do(func() { close(a.done) })

	a.cacheMutex.Lock()
	a.cache = make(map[string]cacheEntry)
	a.cacheMutex.Unlock()

	return nil
}
