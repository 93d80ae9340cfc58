package heatmap

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanaAdeelKhan/geo-gap-compass/gap"
	"github.com/SanaAdeelKhan/geo-gap-compass/remote"
)

type stubFetcher struct {
	calls int
	raw   json.RawMessage
	err   error
}

func (s *stubFetcher) GapHeatmap(context.Context, string, []string) (json.RawMessage, error) {
	s.calls++
	return s.raw, s.err
}

func (s *stubFetcher) BrandGap(context.Context, string, string) (json.RawMessage, error) {
	s.calls++
	return s.raw, s.err
}

func (s *stubFetcher) BrandMissing(context.Context, string, []string) (json.RawMessage, error) {
	s.calls++
	return s.raw, s.err
}

func TestDecode_PicksVariant(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Shape
	}{
		{"numeric", `{"brand":"Nike","data":[{"promptType":"how-to","yourBrandScore":30,"competitorScore":80}]}`, ShapeNumeric},
		{"empty numeric", `{"brand":"Nike","data":[]}`, ShapeNumeric},
		{"categorical", `{"brand":"Nike","prompt_types_analyzed":["how-to"]}`, ShapeCategorical},
		{"data not an array", `{"brand":"Nike","data":{"structured_analysis":"..."}}`, ShapeOpaque},
		{"unknown object", `{"brand":"Nike","note":"later"}`, ShapeOpaque},
		{"top-level array", `[1,2,3]`, ShapeOpaque},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.shape())
		})
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"brand":`))
	assert.Error(t, err)
}

func TestBuild_CategoricalKeepsOrder(t *testing.T) {
	raw := `{"brand":"Nike","prompt_types_analyzed":["how-to","comparison","reviews"],` +
		`"missing_prompt_types":["how-to"],"strong_prompt_types":["reviews"],"using_openai":true}`
	p, err := Decode([]byte(raw))
	require.NoError(t, err)

	h, err := Build("Nike", p)
	require.NoError(t, err)

	assert.Equal(t, []gap.ScoreRow{
		{ContentType: "how-to", YourScore: 25, CompetitorScore: 75},
		{ContentType: "comparison", YourScore: 55, CompetitorScore: 65},
		{ContentType: "reviews", YourScore: 85, CompetitorScore: 45},
	}, h.Data)
	assert.Nil(t, h.Competitor)
	assert.True(t, h.UsingRealProvider)
	assert.False(t, h.IsMock)
	assert.Equal(t, ShapeCategorical, h.Source)
	assert.JSONEq(t, raw, string(h.Raw))
}

func TestBuild_CategoricalIsCaseInsensitive(t *testing.T) {
	p := CategoricalLabels{
		Analyzed: []string{"how-to", "Reviews"},
		Missing:  []string{"How-To"},
		Strong:   []string{"REVIEWS"},
	}

	h, err := Build("Nike", p)
	require.NoError(t, err)

	require.Len(t, h.Data, 2)
	assert.Equal(t, gap.ScoreRow{ContentType: "how-to", YourScore: 25, CompetitorScore: 75}, h.Data[0])
	assert.Equal(t, gap.ScoreRow{ContentType: "Reviews", YourScore: 85, CompetitorScore: 45}, h.Data[1])
}

func TestBuild_MissingWinsOverStrong(t *testing.T) {
	p := CategoricalLabels{
		Analyzed: []string{"pricing"},
		Missing:  []string{"pricing"},
		Strong:   []string{"pricing"},
	}

	h, err := Build("Nike", p)
	require.NoError(t, err)
	assert.Equal(t, 25, h.Data[0].YourScore)
}

func TestBuild_NumericPassThrough(t *testing.T) {
	raw := `{"brand":"Nike","competitor":"Adidas","data":[` +
		`{"promptType":"how-to","yourBrandScore":30,"competitorScore":80},` +
		`{"promptType":"comparison","yourBrandScore":10,"competitorScore":60}],"tokens_used":42}`
	p, err := Decode([]byte(raw))
	require.NoError(t, err)

	h, err := Build("Nike", p)
	require.NoError(t, err)

	assert.Equal(t, []gap.ScoreRow{
		{ContentType: "how-to", YourScore: 30, CompetitorScore: 80},
		{ContentType: "comparison", YourScore: 10, CompetitorScore: 60},
	}, h.Data)
	require.NotNil(t, h.Competitor)
	assert.Equal(t, "Adidas", *h.Competitor)
	assert.Equal(t, 42, h.TokensUsed)
	assert.False(t, h.Opaque())
}

func TestBuild_NumericNormalizesScores(t *testing.T) {
	raw := `{"data":[{"promptType":"a","yourBrandScore":72.6,"competitorScore":130},` +
		`{"promptType":"b","competitorScore":-4},` +
		`{"promptType":"a","yourBrandScore":1,"competitorScore":1},` +
		`{"promptType":"c","yourBrandScore":1e300,"competitorScore":1e19},` +
		`{"promptType":"d","yourBrandScore":-1e300,"competitorScore":99.5}]}`
	p, err := Decode([]byte(raw))
	require.NoError(t, err)

	h, err := Build("Nike", p)
	require.NoError(t, err)

	assert.Equal(t, []gap.ScoreRow{
		{ContentType: "a", YourScore: 73, CompetitorScore: 100},
		{ContentType: "b", YourScore: 0, CompetitorScore: 0},
		{ContentType: "c", YourScore: 100, CompetitorScore: 100},
		{ContentType: "d", YourScore: 0, CompetitorScore: 100},
	}, h.Data)
	assert.Equal(t, "Nike", h.Brand)
}

// A "data" field that is not an array is handed back untouched rather than
// treated as an error.
func TestBuild_OpaqueFallback(t *testing.T) {
	raw := `{"brand":"Nike","data":{"structured_analysis":"free text"}}`
	p, err := Decode([]byte(raw))
	require.NoError(t, err)

	h, err := Build("Nike", p)
	require.NoError(t, err)

	assert.True(t, h.Opaque())
	assert.Empty(t, h.Data)
	assert.Equal(t, raw, string(h.Raw))
}

func TestBuild_EmptyBrand(t *testing.T) {
	_, err := Build(" ", Opaque{})
	assert.True(t, remote.IsInvalidArgument(err))
}

func TestBuilder_EmptyBrandSkipsFetch(t *testing.T) {
	f := &stubFetcher{raw: json.RawMessage(`{"data":[]}`)}
	b := NewBuilder(f)
	ctx := context.Background()

	_, err := b.GapHeatmap(ctx, "", []string{"how-to"})
	assert.True(t, remote.IsInvalidArgument(err))
	_, err = b.BrandGap(ctx, "", "Adidas")
	assert.True(t, remote.IsInvalidArgument(err))
	_, err = b.BrandMissing(ctx, "", nil)
	assert.True(t, remote.IsInvalidArgument(err))

	assert.Equal(t, 0, f.calls)
}

func TestBuilder_BrandMissing(t *testing.T) {
	f := &stubFetcher{raw: json.RawMessage(`{"brand":"Nike","prompt_types_analyzed":["how-to"],"missing_prompt_types":["how-to"],"is_mock":true}`)}

	h, err := NewBuilder(f).BrandMissing(context.Background(), "Nike", []string{"how-to"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls)
	assert.True(t, h.IsMock)
	assert.Equal(t, []gap.ScoreRow{{ContentType: "how-to", YourScore: 25, CompetitorScore: 75}}, h.Data)
}

func TestBuilder_PropagatesRemoteError(t *testing.T) {
	f := &stubFetcher{err: &remote.RemoteError{Op: "brand gap", StatusCode: 502, Body: "bad gateway"}}

	_, err := NewBuilder(f).BrandGap(context.Background(), "Nike", "")
	assert.True(t, remote.IsRemote(err))
}
