package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Environment variable name for controlling statistics visibility
const ENV_DEV_MODE = "DEV_MODE"

// KindStats counts runs of one analysis kind.
type KindStats struct {
	Runs   int `json:"runs"`
	Errors int `json:"errors"`
}

// Statistics represents the collected statistics
type Statistics struct {
	UniqueVisitors map[string]time.Time  `json:"uniqueVisitors"` // IP -> Last Visit Time
	TotalRequests  int                   `json:"totalRequests"`  // every request seen by the API
	AnalysisRuns   int                   `json:"analysisRuns"`   // analyses of any kind
	ErrorCount     int                   `json:"errorCount"`     // failed analyses
	Kinds          map[string]*KindStats `json:"kinds"`          // kind -> counters
	PopularBrands  map[string]int        `json:"popularBrands"`  // brand -> count
	AverageLatency float64               `json:"averageLatency"` // milliseconds
	TotalLatency   float64               `json:"totalLatency"`   // used to calculate average
	LastPersisted  time.Time             `json:"lastPersisted"`  // Last time stats were saved

	path    string
	devMode bool
	mutex   sync.RWMutex
	saveMu  sync.Mutex
}

var (
	stats *Statistics
	once  sync.Once
)

// Initialize creates or loads the process-wide statistics. Only the first
// call's arguments are used.
func Initialize(path string, devMode bool) *Statistics {
	once.Do(func() {
		stats = NewStatistics(path, devMode)
		if err := stats.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Could not load existing statistics: %v\n", err)
		}
	})
	return stats
}

// NewStatistics returns empty statistics persisted at path. An empty path
// disables persistence.
func NewStatistics(path string, devMode bool) *Statistics {
	return &Statistics{
		UniqueVisitors: make(map[string]time.Time),
		Kinds:          make(map[string]*KindStats),
		PopularBrands:  make(map[string]int),
		LastPersisted:  time.Now(),
		path:           path,
		devMode:        devMode,
	}
}

// TrackVisitor records a unique visitor
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.UniqueVisitors[ip] = time.Now()
	s.TotalRequests++
}

// TrackRun records one finished analysis.
func (s *Statistics) TrackRun(kind, brand string, elapsed time.Duration, failed bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.AnalysisRuns++

	k, ok := s.Kinds[kind]
	if !ok {
		k = &KindStats{}
		s.Kinds[kind] = k
	}
	k.Runs++

	if failed {
		s.ErrorCount++
		k.Errors++
	} else if b := strings.ToLower(strings.TrimSpace(brand)); b != "" {
		s.PopularBrands[b]++
	}

	s.TotalLatency += float64(elapsed.Milliseconds())
	s.AverageLatency = s.TotalLatency / float64(s.AnalysisRuns)
}

// Requests returns the number of requests seen so far.
func (s *Statistics) Requests() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.TotalRequests
}

func (s *Statistics) uniqueVisitors24h() int {
	count := 0
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, lastVisit := range s.UniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// BrandCount is one entry of the popular brand ranking.
type BrandCount struct {
	Brand string `json:"brand"`
	Count int    `json:"count"`
}

func (s *Statistics) popularBrands(n int) []BrandCount {
	out := make([]BrandCount, 0, len(s.PopularBrands))
	for b, c := range s.PopularBrands {
		out = append(out, BrandCount{Brand: b, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Brand < out[j].Brand
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *Statistics) errorRate() float64 {
	if s.AnalysisRuns == 0 {
		return 0
	}
	return (float64(s.ErrorCount) / float64(s.AnalysisRuns)) * 100
}

// GetErrorRate returns the error rate as a percentage
func (s *Statistics) GetErrorRate() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.errorRate()
}

// Save persists the statistics to the configured path.
func (s *Statistics) Save() error {
	if s.path == "" {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mutex.Lock()
	s.LastPersisted = time.Now()
	data, err := json.Marshal(s)
	s.mutex.Unlock()
	if err != nil {
		return fmt.Errorf("could not encode statistics: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("could not create statistics directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("could not write statistics file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("could not replace statistics file: %w", err)
	}
	return nil
}

// Load reads the statistics from the configured path.
func (s *Statistics) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Not an error if file doesn't exist yet
		}
		return fmt.Errorf("could not open statistics file: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("could not decode statistics: %w", err)
	}
	if s.UniqueVisitors == nil {
		s.UniqueVisitors = make(map[string]time.Time)
	}
	if s.Kinds == nil {
		s.Kinds = make(map[string]*KindStats)
	}
	if s.PopularBrands == nil {
		s.PopularBrands = make(map[string]int)
	}
	return nil
}

// GetStatistics returns a snapshot. Per-kind counters and popular brands are
// only included in development mode.
func (s *Statistics) GetStatistics() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := map[string]interface{}{
		"uniqueVisitors24h": s.uniqueVisitors24h(),
		"totalRequests":     s.TotalRequests,
		"analysisRuns":      s.AnalysisRuns,
		"errorRate":         s.errorRate(),
		"averageLatency":    s.AverageLatency,
	}
	if !s.devMode {
		return out
	}

	kinds := make(map[string]KindStats, len(s.Kinds))
	for k, v := range s.Kinds {
		kinds[k] = *v
	}
	out["kinds"] = kinds
	out["popularBrands"] = s.popularBrands(5)
	return out
}
