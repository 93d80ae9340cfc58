package analyzer

import "time"

// PageMeta is what a domain's landing page says about itself.
type PageMeta struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Image           string    `json:"image,omitempty"`
	SiteName        string    `json:"siteName,omitempty"`
	Viewport        string    `json:"viewport,omitempty"`
	MobileOptimized bool      `json:"mobileOptimized"`
	StatusCode      int       `json:"statusCode"`
	FetchedAt       time.Time `json:"fetchedAt"`
}

// CacheStats provides statistics about the analyzer's cache
type CacheStats struct {
	Entries    int           `json:"entries"`
	Hits       int           `json:"hits"`
	Misses     int           `json:"misses"`
	Failures   int           `json:"failures"`
	TTL        time.Duration `json:"ttl"`
	MaxEntries int           `json:"maxEntries"`
}
