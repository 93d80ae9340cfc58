// Package gap holds the normalized unit of comparison between a brand and a
// competitor, and the pure rules that turn a pair of scores into a gap,
// a priority tier and the colour bands used when rendering a heatmap.
package gap

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinScore = 0
	MaxScore = 100
)

// ScoreRow is one content type of a heatmap.
type ScoreRow struct {
	ContentType     string `json:"promptType"`
	YourScore       int    `json:"yourBrandScore"`
	CompetitorScore int    `json:"competitorScore"`
}

// Band is the colour bucket of a single score.
type Band string

const (
	Green  Band = "green"
	Yellow Band = "yellow"
	Orange Band = "orange"
	Red    Band = "red"
)

// Priority is the urgency bucket of a gap.
type Priority string

const (
	High   Priority = "High"
	Medium Priority = "Medium"
	Low    Priority = "Low"
)

// Result is the derived, never stored, evaluation of a ScoreRow.
type Result struct {
	ContentType     string   `json:"promptType"`
	YourScore       int      `json:"yourBrandScore"`
	CompetitorScore int      `json:"competitorScore"`
	Gap             int      `json:"gap"`
	Priority        Priority `json:"priority"`
	YourBand        Band     `json:"yourBand"`
	CompetitorBand  Band     `json:"competitorBand"`
	Trend           Band     `json:"gapBand"`
}

// VisualBand maps a score to its colour band. Lower bounds are inclusive.
func VisualBand(score int) Band {
	switch {
	case score >= 70:
		return Green
	case score >= 50:
		return Yellow
	case score >= 30:
		return Orange
	default:
		return Red
	}
}

// PriorityTier maps a gap to its priority. Negative gaps (brand ahead) are Low:
// there is no separate tier for a leading brand.
func PriorityTier(gap int) Priority {
	switch {
	case gap >= 40:
		return High
	case gap >= 20:
		return Medium
	default:
		return Low
	}
}

// Trend is the colour of the gap figure itself. Unlike PriorityTier it does
// tell a leading brand (green) apart from a near tie (yellow).
func Trend(gap int) Band {
	switch {
	case gap >= 40:
		return Red
	case gap >= 20:
		return Orange
	case gap >= 0:
		return Yellow
	default:
		return Green
	}
}

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Gap returns competitor minus brand score.
func Gap(row ScoreRow) int {
	return Clamp(row.CompetitorScore) - Clamp(row.YourScore)
}

// Evaluate classifies a single row.
func Evaluate(row ScoreRow) Result {
	your, comp := Clamp(row.YourScore), Clamp(row.CompetitorScore)
	g := comp - your
	return Result{
		ContentType:     row.ContentType,
		YourScore:       your,
		CompetitorScore: comp,
		Gap:             g,
		Priority:        PriorityTier(g),
		YourBand:        VisualBand(your),
		CompetitorBand:  VisualBand(comp),
		Trend:           Trend(g),
	}
}

// EvaluateAll classifies rows keeping their order.
func EvaluateAll(rows []ScoreRow) []Result {
	out := make([]Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, Evaluate(r))
	}
	return out
}

// Rank classifies rows and orders them by gap, largest deficit first.
// Rows with equal gaps keep their input order.
func Rank(rows []ScoreRow) []Result {
	out := EvaluateAll(rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Gap > out[j].Gap
	})
	return out
}

// Label turns a content type id such as "how-to" into "How to".
func Label(contentType string) string {
	s := strings.TrimSpace(strings.ReplaceAll(contentType, "-", " "))
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
