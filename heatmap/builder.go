// Package heatmap turns the backend's heatmap payloads, numeric or
// categorical, into an ordered list of gap.ScoreRow.
package heatmap

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/SanaAdeelKhan/geo-gap-compass/gap"
	"github.com/SanaAdeelKhan/geo-gap-compass/remote"
)

// Categorical scoring policy. These are a fixed contract, not tunables.
const (
	MissingYourScore       = 25
	MissingCompetitorScore = 75
	StrongYourScore        = 85
	StrongCompetitorScore  = 45
	NeutralYourScore       = 55
	NeutralCompetitorScore = 65
)

// Heatmap is the normalized result of any of the three payload shapes.
// For ShapeOpaque, Data is empty and Raw holds the backend body.
type Heatmap struct {
	Brand             string          `json:"brand"`
	Competitor        *string         `json:"competitor"`
	Data              []gap.ScoreRow  `json:"data"`
	Recommendations   json.RawMessage `json:"recommendations,omitempty"`
	TokensUsed        int             `json:"tokens_used,omitempty"`
	UsingRealProvider bool            `json:"using_openai"`
	IsMock            bool            `json:"is_mock"`
	Source            Shape           `json:"source"`
	Raw               json.RawMessage `json:"raw,omitempty"`
}

// Opaque reports whether the backend shape was not understood.
func (h Heatmap) Opaque() bool {
	return h.Source == ShapeOpaque
}

// Build normalizes p for brand. It fails only when brand is empty.
func Build(brand string, p Payload) (Heatmap, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return Heatmap{}, remote.InvalidArgument("brand", "is required")
	}

	switch v := p.(type) {
	case NumericRows:
		return fromNumeric(brand, v), nil
	case CategoricalLabels:
		return fromCategorical(brand, v), nil
	case Opaque:
		return Heatmap{Brand: brand, Source: ShapeOpaque, Raw: v.Raw}, nil
	default:
		return Heatmap{Brand: brand, Source: ShapeOpaque}, nil
	}
}

func fromNumeric(brand string, n NumericRows) Heatmap {
	rows := make([]gap.ScoreRow, 0, len(n.Data))
	seen := make(map[string]bool, len(n.Data))
	for _, r := range n.Data {
		if seen[r.ContentType] {
			continue
		}
		seen[r.ContentType] = true
		rows = append(rows, gap.ScoreRow{
			ContentType:     r.ContentType,
			YourScore:       score(r.YourScore),
			CompetitorScore: score(r.CompetitorScore),
		})
	}

	if n.Brand != "" {
		brand = n.Brand
	}
	return Heatmap{
		Brand:             brand,
		Competitor:        n.Competitor,
		Data:              rows,
		Recommendations:   n.Recommendations,
		TokensUsed:        n.TokensUsed,
		UsingRealProvider: n.UsingOpenAI,
		IsMock:            n.IsMock,
		Source:            ShapeNumeric,
	}
}

func fromCategorical(brand string, c CategoricalLabels) Heatmap {
	missing := foldSet(c.Missing)
	strong := foldSet(c.Strong)

	rows := make([]gap.ScoreRow, 0, len(c.Analyzed))
	seen := make(map[string]bool, len(c.Analyzed))
	for _, pt := range c.Analyzed {
		if seen[pt] {
			continue
		}
		seen[pt] = true

		key := strings.ToLower(pt)
		row := gap.ScoreRow{ContentType: pt}
		switch {
		case missing[key]:
			row.YourScore, row.CompetitorScore = MissingYourScore, MissingCompetitorScore
		case strong[key]:
			row.YourScore, row.CompetitorScore = StrongYourScore, StrongCompetitorScore
		default:
			row.YourScore, row.CompetitorScore = NeutralYourScore, NeutralCompetitorScore
		}
		rows = append(rows, row)
	}

	if c.Brand != "" {
		brand = c.Brand
	}
	return Heatmap{
		Brand:             brand,
		Competitor:        nil,
		Data:              rows,
		TokensUsed:        c.TokensUsed,
		UsingRealProvider: c.UsingOpenAI,
		IsMock:            c.IsMock,
		Source:            ShapeCategorical,
		Raw:               c.raw,
	}
}

func foldSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = true
	}
	return set
}

func score(v *float64) int {
	if v == nil || math.IsNaN(*v) {
		return gap.MinScore
	}
	// clamp before converting: int() of a huge float is undefined
	f := math.Max(gap.MinScore, math.Min(gap.MaxScore, math.Round(*v)))
	return int(f)
}

// Fetcher is the part of the remote client the builder needs.
type Fetcher interface {
	GapHeatmap(ctx context.Context, brand string, missingTopics []string) (json.RawMessage, error)
	BrandGap(ctx context.Context, brand, competitor string) (json.RawMessage, error)
	BrandMissing(ctx context.Context, brand string, promptTypes []string) (json.RawMessage, error)
}

// Builder fetches a heatmap payload and normalizes it.
type Builder struct {
	fetch Fetcher
}

func NewBuilder(f Fetcher) *Builder {
	return &Builder{fetch: f}
}

// GapHeatmap builds from GET /gap_heatmap/.
func (b *Builder) GapHeatmap(ctx context.Context, brand string, topics []string) (Heatmap, error) {
	if strings.TrimSpace(brand) == "" {
		return Heatmap{}, remote.InvalidArgument("brand", "is required")
	}
	raw, err := b.fetch.GapHeatmap(ctx, brand, topics)
	if err != nil {
		return Heatmap{}, err
	}
	return b.build(brand, raw)
}

// BrandGap builds from the numeric GET /citations/brand-gap.
func (b *Builder) BrandGap(ctx context.Context, brand, competitor string) (Heatmap, error) {
	if strings.TrimSpace(brand) == "" {
		return Heatmap{}, remote.InvalidArgument("brand", "is required")
	}
	raw, err := b.fetch.BrandGap(ctx, brand, competitor)
	if err != nil {
		return Heatmap{}, err
	}
	return b.build(brand, raw)
}

// BrandMissing builds from the categorical GET /citations/brand-missing.
func (b *Builder) BrandMissing(ctx context.Context, brand string, promptTypes []string) (Heatmap, error) {
	if strings.TrimSpace(brand) == "" {
		return Heatmap{}, remote.InvalidArgument("brand", "is required")
	}
	raw, err := b.fetch.BrandMissing(ctx, brand, promptTypes)
	if err != nil {
		return Heatmap{}, err
	}
	return b.build(brand, raw)
}

func (b *Builder) build(brand string, raw json.RawMessage) (Heatmap, error) {
	p, err := Decode(raw)
	if err != nil {
		return Heatmap{}, &remote.TransportError{Op: "heatmap", Err: err}
	}
	return Build(brand, p)
}
