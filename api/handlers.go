package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SanaAdeelKhan/geo-gap-compass/analysis"
	"github.com/SanaAdeelKhan/geo-gap-compass/gap"
	"github.com/SanaAdeelKhan/geo-gap-compass/heatmap"
	"github.com/SanaAdeelKhan/geo-gap-compass/remote"
)

type promptTestRequest struct {
	Brand      string   `json:"brand"`
	Variations []string `json:"variations"`
}

type singlePromptRequest struct {
	Brand  string `json:"brand"`
	Prompt string `json:"prompt"`
}

type competitorRequest struct {
	Brand       string   `json:"brand"`
	Competitors []string `json:"competitors"`
}

type domainRequest struct {
	Brand        string   `json:"brand"`
	Domains      []string `json:"domains"`
	AnalysisType string   `json:"analysisType"`
}

// HeatmapReport is a stored heatmap with every row classified, biggest gap
// first.
type HeatmapReport struct {
	Brand      string          `json:"brand"`
	Competitor *string         `json:"competitor"`
	Source     heatmap.Shape   `json:"source"`
	Rows       []gap.Result    `json:"rows"`
	Raw        json.RawMessage `json:"raw,omitempty"`
	FetchedAt  time.Time       `json:"fetchedAt"`
}

// bind decodes the JSON body; a malformed body is the caller's fault.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.Error(remote.InvalidArgument("body", "is not valid JSON: "+err.Error()))
		return false
	}
	return true
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health(c.Request.Context()))
}

func (h *handler) testPrompts(c *gin.Context) {
	var req promptTestRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.RunPromptTest(c.Request.Context(), req.Brand, req.Variations)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) singlePrompt(c *gin.Context) {
	var req singlePromptRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.Client().SinglePrompt(c.Request.Context(), req.Brand, req.Prompt)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) promptTemplates(c *gin.Context) {
	res, err := h.svc.Client().PromptTemplates(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) promptVariations(c *gin.Context) {
	n := 0
	if s := c.Query("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			c.Error(remote.InvalidArgument("n", "must be an integer"))
			return
		}
		n = v
	}
	res, err := h.svc.Client().GenerateVariations(c.Request.Context(), c.Query("brand"), c.Query("base_prompt"), n)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) competitors(c *gin.Context) {
	var req competitorRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.RunCompetitors(c.Request.Context(), req.Brand, req.Competitors)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) domains(c *gin.Context) {
	var req domainRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.RunDomains(c.Request.Context(), req.Brand, req.Domains, req.AnalysisType)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) domainStats(c *gin.Context) {
	includeAI, _ := strconv.ParseBool(c.DefaultQuery("include_ai", "false"))
	res, err := h.svc.Client().DomainStats(c.Request.Context(), c.Query("brand"), remote.SplitList(c.Query("domains")), includeAI)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) heatmap(c *gin.Context) {
	var req analysis.HeatmapRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.RunHeatmap(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) heatmapReport(c *gin.Context) {
	res, ok := h.svc.Stores().Heatmap.Get()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no heatmap has been generated"})
		return
	}
	c.JSON(http.StatusOK, Report(res))
}

// Report classifies the rows of a stored heatmap.
func Report(res analysis.HeatmapResult) HeatmapReport {
	return HeatmapReport{
		Brand:      res.Brand,
		Competitor: res.Payload.Competitor,
		Source:     res.Payload.Source,
		Rows:       gap.Rank(res.Payload.Data),
		Raw:        res.Payload.Raw,
		FetchedAt:  res.FetchedAt,
	}
}

func (h *handler) result(c *gin.Context) {
	kind, err := analysis.ParseKind(c.Param("kind"))
	if err != nil {
		c.Error(err)
		return
	}
	res, ok := h.svc.Stores().Get(kind)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no stored result", "kind": kind})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) clearResult(c *gin.Context) {
	kind, err := analysis.ParseKind(c.Param("kind"))
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.svc.Clear(kind); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) extractURLs(c *gin.Context) {
	res, err := h.svc.Client().ExtractURLs(c.Request.Context(), c.Query("text"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) brandPresence(c *gin.Context) {
	res, err := h.svc.Client().AnalyzeBrandPresence(c.Request.Context(),
		c.Query("brand"),
		remote.SplitList(c.Query("competitors")),
		c.Query("topic"),
	)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) statistics(c *gin.Context) {
	out := gin.H{}
	if h.stats != nil {
		for k, v := range h.stats.GetStatistics() {
			out[k] = v
		}
	}
	if h.pages != nil {
		out["pageCache"] = h.pages.GetCacheStats()
	}
	c.JSON(http.StatusOK, out)
}
