package analysis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanaAdeelKhan/geo-gap-compass/analyzer"
	"github.com/SanaAdeelKhan/geo-gap-compass/gap"
	"github.com/SanaAdeelKhan/geo-gap-compass/heatmap"
	"github.com/SanaAdeelKhan/geo-gap-compass/remote"
	"github.com/SanaAdeelKhan/geo-gap-compass/store"
)

var fixedNow = time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

type backend struct {
	srv   *httptest.Server
	fail  atomic.Bool
	calls atomic.Int32
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &backend{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		b.calls.Add(1)
		if b.fail.Load() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "provider down"})
			return
		}
		c.Next()
	})
	r.POST("/prompts/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"brand":   "Nike",
			"summary": gin.H{"total_prompts": 2, "total_citations": 3, "total_tokens_used": 120, "using_openai": true},
			"results": []gin.H{{"prompt": "best running shoes", "citations": []string{"https://nike.com"}}},
		})
	})
	r.POST("/analyze_competitors/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"brand":       "Nike",
			"competitors": []gin.H{{"name": "Adidas", "score": 82}},
			"tokens_used": 40,
			"is_mock":     true,
		})
	})
	r.POST("/insights/analyze-domains", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"brand": "Nike",
			"domains": gin.H{
				"nike.com":   gin.H{"title": "Nike", "description": "Just do it"},
				"adidas.com": gin.H{"visibility_score": 64.5},
				"puma.com":   gin.H{},
			},
			"using_openai": true,
			"tokens_used":  77,
		})
	})
	r.GET("/gap_heatmap/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"brand": c.Query("brand"),
			"data": []gin.H{
				{"promptType": "how-to", "yourBrandScore": 30, "competitorScore": 80},
				{"promptType": "pricing", "yourBrandScore": 90, "competitorScore": 40},
			},
			"tokens_used":  15,
			"using_openai": true,
		})
	})
	r.GET("/citations/brand-gap", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"brand": c.Query("brand"), "data": "not rows"})
	})
	r.GET("/citations/brand-missing", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"brand":                 c.Query("brand"),
			"prompt_types_analyzed": []string{"how-to", "comparison", "pricing"},
			"missing_prompt_types":  []string{"Comparison"},
			"strong_prompt_types":   []string{"pricing"},
			"is_mock":               true,
		})
	})

	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	return b
}

type pages struct {
	mu    sync.Mutex
	asked []string
}

func (p *pages) Analyze(_ context.Context, domain string) (*analyzer.PageMeta, error) {
	p.mu.Lock()
	p.asked = append(p.asked, domain)
	p.mu.Unlock()
	if domain == "adidas.com" {
		return &analyzer.PageMeta{Title: "adidas Official", Description: "Impossible is nothing", Image: "https://adidas.com/og.png"}, nil
	}
	return nil, errors.New("connection refused")
}

type runs struct {
	mu     sync.Mutex
	kinds  []string
	failed []bool
}

func (r *runs) TrackRun(kind, _ string, _ time.Duration, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	r.failed = append(r.failed, failed)
}

func newService(t *testing.T, b *backend, opts ...Option) (*Service, store.Provider) {
	t.Helper()
	p := store.NewMemoryProvider()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(remote.New(b.srv.URL), NewStores(p, nil), opts...), p
}

func TestRunPromptTest(t *testing.T) {
	b := newBackend(t)
	svc, _ := newService(t, b)

	r, err := svc.RunPromptTest(context.Background(), "Nike", []string{"best running shoes"})
	require.NoError(t, err)
	assert.Equal(t, "Nike", r.Brand)
	assert.Equal(t, Metadata{TokensUsed: 120, UsingRealProvider: true}, r.Metadata)
	assert.Equal(t, fixedNow, r.FetchedAt)

	stored, ok := svc.Stores().Prompt.Get()
	require.True(t, ok)
	assert.Equal(t, r, stored)
}

func TestRunCompetitors(t *testing.T) {
	b := newBackend(t)
	svc, _ := newService(t, b)

	r, err := svc.RunCompetitors(context.Background(), "Nike", []string{"Adidas"})
	require.NoError(t, err)
	assert.Equal(t, []remote.CompetitorScore{{Name: "Adidas", Score: 82}}, r.Payload.Competitors)
	assert.Equal(t, Metadata{TokensUsed: 40, IsMock: true}, r.Metadata)

	_, ok := svc.Stores().Competitor.Get()
	assert.True(t, ok)
}

func TestRunDomains_Enrichment(t *testing.T) {
	b := newBackend(t)
	src := &pages{}
	svc, _ := newService(t, b, WithPageSource(src))

	r, err := svc.RunDomains(context.Background(), "Nike", []string{"nike.com", "adidas.com", "puma.com"}, "")
	require.NoError(t, err)

	adidas := r.Payload.Domains["adidas.com"]
	assert.Equal(t, "adidas Official", adidas.Title)
	assert.Equal(t, "Impossible is nothing", adidas.Description)
	require.NotNil(t, adidas.VisibilityScore)
	assert.Equal(t, 64.5, *adidas.VisibilityScore, "backend fields survive enrichment")

	assert.Equal(t, "Nike", r.Payload.Domains["nike.com"].Title)
	assert.Empty(t, r.Payload.Domains["puma.com"].Title, "failed lookups leave the entry untouched")
	assert.ElementsMatch(t, []string{"adidas.com", "puma.com"}, src.asked, "complete entries are not looked up")
	assert.Equal(t, Metadata{TokensUsed: 77, UsingRealProvider: true}, r.Metadata)
}

func TestRunDomains_NoPageSource(t *testing.T) {
	b := newBackend(t)
	svc, _ := newService(t, b)

	r, err := svc.RunDomains(context.Background(), "Nike", []string{"adidas.com"}, "visibility")
	require.NoError(t, err)
	assert.Empty(t, r.Payload.Domains["adidas.com"].Title)
}

func TestRunHeatmap_Sources(t *testing.T) {
	b := newBackend(t)
	svc, _ := newService(t, b)
	ctx := context.Background()

	t.Run("gap", func(t *testing.T) {
		r, err := svc.RunHeatmap(ctx, HeatmapRequest{Source: SourceGap, Brand: "Nike", Topics: []string{"running"}})
		require.NoError(t, err)
		assert.Equal(t, heatmap.ShapeNumeric, r.Payload.Source)
		assert.Equal(t, []gap.ScoreRow{
			{ContentType: "how-to", YourScore: 30, CompetitorScore: 80},
			{ContentType: "pricing", YourScore: 90, CompetitorScore: 40},
		}, r.Payload.Data)
		assert.Equal(t, Metadata{TokensUsed: 15, UsingRealProvider: true}, r.Metadata)
	})

	t.Run("brand-missing", func(t *testing.T) {
		r, err := svc.RunHeatmap(ctx, HeatmapRequest{Source: SourceBrandMissing, Brand: "Nike"})
		require.NoError(t, err)
		assert.Equal(t, []gap.ScoreRow{
			{ContentType: "how-to", YourScore: 55, CompetitorScore: 65},
			{ContentType: "comparison", YourScore: 25, CompetitorScore: 75},
			{ContentType: "pricing", YourScore: 85, CompetitorScore: 45},
		}, r.Payload.Data)
		assert.True(t, r.Metadata.IsMock)
	})

	t.Run("brand-gap opaque", func(t *testing.T) {
		r, err := svc.RunHeatmap(ctx, HeatmapRequest{Source: SourceBrandGap, Brand: "Nike", Competitor: "Adidas"})
		require.NoError(t, err)
		assert.True(t, r.Payload.Opaque())
		assert.Empty(t, r.Payload.Data)
		assert.JSONEq(t, `{"brand":"Nike","data":"not rows"}`, string(r.Payload.Raw))
	})

	stored, ok := svc.Stores().Heatmap.Get()
	require.True(t, ok)
	assert.True(t, stored.Payload.Opaque(), "the last run owns the slot")
}

func TestRunHeatmap_InvalidInput(t *testing.T) {
	b := newBackend(t)
	svc, _ := newService(t, b)
	ctx := context.Background()

	_, err := svc.RunHeatmap(ctx, HeatmapRequest{Source: "weekly", Brand: "Nike"})
	assert.True(t, remote.IsInvalidArgument(err))

	_, err = svc.RunHeatmap(ctx, HeatmapRequest{Source: SourceBrandMissing, Brand: "  "})
	assert.True(t, remote.IsInvalidArgument(err))

	_, err = svc.RunHeatmap(ctx, HeatmapRequest{Source: SourceGap, Brand: "Nike"})
	assert.True(t, remote.IsInvalidArgument(err), "the gap source needs topics")

	assert.Zero(t, b.calls.Load())
}

func TestFailureNeverOverwritesStoredResult(t *testing.T) {
	b := newBackend(t)
	svc, p := newService(t, b)
	ctx := context.Background()

	first, err := svc.RunCompetitors(ctx, "Nike", []string{"Adidas"})
	require.NoError(t, err)
	_, err = svc.RunHeatmap(ctx, HeatmapRequest{Source: SourceBrandMissing, Brand: "Nike"})
	require.NoError(t, err)
	before, _ := p.Get(store.AppDocument)

	b.fail.Store(true)

	_, err = svc.RunCompetitors(ctx, "Puma", []string{"Reebok"})
	var remoteErr *remote.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusInternalServerError, remoteErr.StatusCode)
	assert.Contains(t, remoteErr.Body, "provider down")

	_, err = svc.RunHeatmap(ctx, HeatmapRequest{Source: SourceBrandMissing, Brand: "Puma"})
	require.Error(t, err)

	stored, ok := svc.Stores().Competitor.Get()
	require.True(t, ok)
	assert.Equal(t, first, stored)

	after, _ := p.Get(store.AppDocument)
	assert.JSONEq(t, string(before), string(after), "durable copy is untouched")
}

func TestRecorders(t *testing.T) {
	b := newBackend(t)
	rec := &runs{}
	svc, _ := newService(t, b, WithRecorder(rec))
	ctx := context.Background()

	svc.RunCompetitors(ctx, "Nike", []string{"Adidas"})
	svc.RunCompetitors(ctx, "", []string{"Adidas"})
	svc.RunPromptTest(ctx, "Nike", nil)

	assert.Equal(t, []string{"competitor", "competitor", "prompt-test"}, rec.kinds)
	assert.Equal(t, []bool{false, true, false}, rec.failed)
}

func TestClear(t *testing.T) {
	b := newBackend(t)
	svc, p := newService(t, b)
	ctx := context.Background()

	_, err := svc.RunPromptTest(ctx, "Nike", nil)
	require.NoError(t, err)
	_, err = svc.RunCompetitors(ctx, "Nike", []string{"Adidas"})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(KindPromptTest))
	require.NoError(t, svc.Clear(KindPromptTest))

	_, ok := svc.Stores().Get(KindPromptTest)
	assert.False(t, ok)
	data, _ := p.Get(store.PromptDocument)
	assert.Nil(t, data)

	_, ok = svc.Stores().Get(KindCompetitor)
	assert.True(t, ok, "other kinds are untouched")

	assert.True(t, remote.IsInvalidArgument(svc.Clear(Kind("everything"))))
}

func TestStoresSurviveRestart(t *testing.T) {
	b := newBackend(t)
	svc, p := newService(t, b)

	want, err := svc.RunHeatmap(context.Background(), HeatmapRequest{Source: SourceGap, Brand: "Nike", Topics: []string{"running"}})
	require.NoError(t, err)

	restarted := NewStores(p, nil)
	got, ok := restarted.Heatmap.Get()
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"prompt-test":    KindPromptTest,
		"Prompts":        KindPromptTest,
		"heatmap":        KindHeatmap,
		"competitors":    KindCompetitor,
		"domain-insight": KindDomainInsight,
		" insights ":     KindDomainInsight,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("history")
	assert.True(t, remote.IsInvalidArgument(err))
}
