package analysis

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SanaAdeelKhan/geo-gap-compass/heatmap"
	"github.com/SanaAdeelKhan/geo-gap-compass/remote"
	"github.com/SanaAdeelKhan/geo-gap-compass/store"
)

// Kind names one analysis and, with it, one persisted slot.
type Kind string

const (
	KindPromptTest    Kind = "prompt-test"
	KindHeatmap       Kind = "heatmap"
	KindCompetitor    Kind = "competitor"
	KindDomainInsight Kind = "domain-insight"
)

// Kinds lists every analysis kind in display order.
var Kinds = []Kind{KindPromptTest, KindHeatmap, KindCompetitor, KindDomainInsight}

// ParseKind accepts the canonical names plus a few short aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prompt-test", "prompt", "prompts":
		return KindPromptTest, nil
	case "heatmap", "gap":
		return KindHeatmap, nil
	case "competitor", "competitors":
		return KindCompetitor, nil
	case "domain-insight", "domain", "domains", "insights":
		return KindDomainInsight, nil
	}
	return "", remote.InvalidArgument("kind", fmt.Sprintf("unknown analysis kind %q", s))
}

// Metadata tells live provider answers apart from synthetic fallback data.
type Metadata struct {
	TokensUsed        int  `json:"tokensUsed"`
	UsingRealProvider bool `json:"usingRealProvider"`
	IsMock            bool `json:"isMock"`
}

// Result is the most recent successful analysis of one kind.
type Result[P any] struct {
	Brand     string    `json:"brand"`
	Payload   P         `json:"payload"`
	Metadata  Metadata  `json:"metadata"`
	FetchedAt time.Time `json:"fetchedAt"`
}

type (
	PromptTestResult    = Result[remote.PromptTestResponse]
	HeatmapResult       = Result[heatmap.Heatmap]
	CompetitorResult    = Result[remote.CompetitorAnalysis]
	DomainInsightResult = Result[remote.DomainInsights]
)

// Stores holds one persisted slot per kind. Prompt tests live in their own
// document; the other three share the application document.
type Stores struct {
	Prompt     *store.Persisted[PromptTestResult]
	Heatmap    *store.Persisted[HeatmapResult]
	Competitor *store.Persisted[CompetitorResult]
	Insights   *store.Persisted[DomainInsightResult]
}

// NewStores opens both documents on p and binds each kind to its field.
func NewStores(p store.Provider, logger *slog.Logger) *Stores {
	prompts := store.OpenDocument(store.PromptDocument, p, logger)
	app := store.OpenDocument(store.AppDocument, p, logger)
	return &Stores{
		Prompt:     store.NewPersisted[PromptTestResult](prompts, "results"),
		Heatmap:    store.NewPersisted[HeatmapResult](app, "gapHeatmapData"),
		Competitor: store.NewPersisted[CompetitorResult](app, "competitorData"),
		Insights:   store.NewPersisted[DomainInsightResult](app, "insightsData"),
	}
}

// Get returns the stored result of kind as an untyped value, or nil.
func (s *Stores) Get(kind Kind) (any, bool) {
	switch kind {
	case KindPromptTest:
		return unwrap(s.Prompt.Get())
	case KindHeatmap:
		return unwrap(s.Heatmap.Get())
	case KindCompetitor:
		return unwrap(s.Competitor.Get())
	case KindDomainInsight:
		return unwrap(s.Insights.Get())
	}
	return nil, false
}

// Clear resets the slot of kind. Clearing an empty slot succeeds.
func (s *Stores) Clear(kind Kind) error {
	switch kind {
	case KindPromptTest:
		s.Prompt.Clear()
	case KindHeatmap:
		s.Heatmap.Clear()
	case KindCompetitor:
		s.Competitor.Clear()
	case KindDomainInsight:
		s.Insights.Clear()
	default:
		return remote.InvalidArgument("kind", fmt.Sprintf("unknown analysis kind %q", kind))
	}
	return nil
}

func unwrap[T any](v T, ok bool) (any, bool) {
	if !ok {
		return nil, false
	}
	return v, true
}
