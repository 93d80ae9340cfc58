// Package analysis runs each analysis kind against the backend and keeps the
// latest successful result of every kind in its persisted slot.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SanaAdeelKhan/geo-gap-compass/analyzer"
	"github.com/SanaAdeelKhan/geo-gap-compass/heatmap"
	"github.com/SanaAdeelKhan/geo-gap-compass/remote"
)

// HeatmapSource selects which backend endpoint feeds a heatmap.
type HeatmapSource string

const (
	SourceGap          HeatmapSource = "gap"
	SourceBrandGap     HeatmapSource = "brand-gap"
	SourceBrandMissing HeatmapSource = "brand-missing"
)

// HeatmapRequest carries the inputs of every heatmap source; each source
// reads only the fields it needs.
type HeatmapRequest struct {
	Source      HeatmapSource `json:"source"`
	Brand       string        `json:"brand"`
	Topics      []string      `json:"topics,omitempty"`
	Competitor  string        `json:"competitor,omitempty"`
	PromptTypes []string      `json:"promptTypes,omitempty"`
}

// PageSource looks up page metadata for a bare domain.
type PageSource interface {
	Analyze(ctx context.Context, domain string) (*analyzer.PageMeta, error)
}

// Recorder observes every finished run, successful or not.
type Recorder interface {
	TrackRun(kind, brand string, elapsed time.Duration, failed bool)
}

const enrichLimit = 4

// Service is safe for concurrent use. Overlapping runs of the same kind are
// not sequenced: the last one to finish owns the slot.
type Service struct {
	client    *remote.Client
	heatmaps  *heatmap.Builder
	stores    *Stores
	pages     PageSource
	recorders []Recorder
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithPageSource enables filling in missing domain titles and descriptions.
func WithPageSource(p PageSource) Option {
	return func(s *Service) { s.pages = p }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorders = append(s.recorders, r) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(client *remote.Client, stores *Stores, opts ...Option) *Service {
	s := &Service{
		client:   client,
		heatmaps: heatmap.NewBuilder(client),
		stores:   stores,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client exposes the backend client for pass-through operations.
func (s *Service) Client() *remote.Client {
	return s.client
}

func (s *Service) Stores() *Stores {
	return s.stores
}

// Health never fails; see remote.Client.Health.
func (s *Service) Health(ctx context.Context) remote.HealthStatus {
	return s.client.Health(ctx)
}

// RunPromptTest tests prompt visibility for brand and stores the outcome.
func (s *Service) RunPromptTest(ctx context.Context, brand string, variations []string) (PromptTestResult, error) {
	start := s.now()
	resp, err := s.client.TestPrompts(ctx, brand, variations)
	s.track(KindPromptTest, brand, start, err)
	if err != nil {
		return PromptTestResult{}, err
	}

	r := PromptTestResult{
		Brand:     firstNonEmpty(resp.Brand, brand),
		Payload:   *resp,
		FetchedAt: s.now().UTC(),
	}
	if resp.Summary != nil {
		r.Metadata = Metadata{
			TokensUsed:        resp.Summary.TotalTokensUsed,
			UsingRealProvider: resp.Summary.UsingOpenAI,
		}
	}
	s.stores.Prompt.Set(r)
	return r, nil
}

// RunCompetitors scores brand against competitors and stores the outcome.
func (s *Service) RunCompetitors(ctx context.Context, brand string, competitors []string) (CompetitorResult, error) {
	start := s.now()
	resp, err := s.client.AnalyzeCompetitors(ctx, brand, competitors)
	s.track(KindCompetitor, brand, start, err)
	if err != nil {
		return CompetitorResult{}, err
	}

	r := CompetitorResult{
		Brand:   firstNonEmpty(resp.Brand, brand),
		Payload: *resp,
		Metadata: Metadata{
			TokensUsed:        resp.TokensUsed,
			UsingRealProvider: resp.UsingOpenAI,
			IsMock:            resp.IsMock,
		},
		FetchedAt: s.now().UTC(),
	}
	s.stores.Competitor.Set(r)
	return r, nil
}

// RunDomains analyzes domains for brand. When a page source is configured,
// entries without a title or description are filled from the live page;
// enrichment failures are logged and leave the entry as the backend sent it.
func (s *Service) RunDomains(ctx context.Context, brand string, domains []string, analysisType string) (DomainInsightResult, error) {
	start := s.now()
	resp, err := s.client.AnalyzeDomains(ctx, brand, domains, analysisType)
	s.track(KindDomainInsight, brand, start, err)
	if err != nil {
		return DomainInsightResult{}, err
	}

	if s.pages != nil {
		s.enrich(ctx, resp)
	}

	r := DomainInsightResult{
		Brand:   firstNonEmpty(resp.Brand, brand),
		Payload: *resp,
		Metadata: Metadata{
			TokensUsed:        resp.TokensUsed,
			UsingRealProvider: resp.UsingOpenAI,
			IsMock:            resp.IsMock,
		},
		FetchedAt: s.now().UTC(),
	}
	s.stores.Insights.Set(r)
	return r, nil
}

// RunHeatmap builds a heatmap from the requested source and stores it.
func (s *Service) RunHeatmap(ctx context.Context, req HeatmapRequest) (HeatmapResult, error) {
	start := s.now()
	hm, err := s.buildHeatmap(ctx, req)
	s.track(KindHeatmap, req.Brand, start, err)
	if err != nil {
		return HeatmapResult{}, err
	}

	r := HeatmapResult{
		Brand:   hm.Brand,
		Payload: hm,
		Metadata: Metadata{
			TokensUsed:        hm.TokensUsed,
			UsingRealProvider: hm.UsingRealProvider,
			IsMock:            hm.IsMock,
		},
		FetchedAt: s.now().UTC(),
	}
	s.stores.Heatmap.Set(r)
	return r, nil
}

func (s *Service) buildHeatmap(ctx context.Context, req HeatmapRequest) (heatmap.Heatmap, error) {
	switch req.Source {
	case SourceGap, "":
		return s.heatmaps.GapHeatmap(ctx, req.Brand, req.Topics)
	case SourceBrandGap:
		return s.heatmaps.BrandGap(ctx, req.Brand, req.Competitor)
	case SourceBrandMissing:
		return s.heatmaps.BrandMissing(ctx, req.Brand, req.PromptTypes)
	default:
		return heatmap.Heatmap{}, remote.InvalidArgument("source", fmt.Sprintf("unknown heatmap source %q", req.Source))
	}
}

// Clear resets the stored result of kind.
func (s *Service) Clear(kind Kind) error {
	if err := s.stores.Clear(kind); err != nil {
		return err
	}
	s.logger.Info("analysis result cleared", "kind", kind)
	return nil
}

func (s *Service) enrich(ctx context.Context, resp *remote.DomainInsights) {
	names := make([]string, 0, len(resp.Domains))
	for name, info := range resp.Domains {
		if info.Title == "" || info.Description == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return
	}
	sort.Strings(names)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(enrichLimit)
	for _, name := range names {
		g.Go(func() error {
			meta, err := s.pages.Analyze(ctx, name)
			if err != nil {
				s.logger.Warn("domain enrichment failed", "domain", name, "error", err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			info := resp.Domains[name]
			if info.Title == "" {
				info.Title = meta.Title
			}
			if info.Description == "" {
				info.Description = meta.Description
			}
			if info.Image == "" {
				info.Image = meta.Image
			}
			resp.Domains[name] = info
			return nil
		})
	}
	g.Wait()
}

func (s *Service) track(kind Kind, brand string, start time.Time, err error) {
	elapsed := s.now().Sub(start)
	if err != nil {
		s.logger.Warn("analysis failed", "kind", kind, "brand", brand, "elapsed", elapsed, "error", err)
	} else {
		s.logger.Info("analysis completed", "kind", kind, "brand", brand, "elapsed", elapsed)
	}
	for _, r := range s.recorders {
		r.TrackRun(string(kind), strings.TrimSpace(brand), elapsed, err != nil)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
