// Package api exposes the analyses and their stored results over HTTP for
// the browser UI.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SanaAdeelKhan/geo-gap-compass/analysis"
	"github.com/SanaAdeelKhan/geo-gap-compass/analyzer"
	"github.com/SanaAdeelKhan/geo-gap-compass/logging"
	"github.com/SanaAdeelKhan/geo-gap-compass/middleware"
)

// Deps are the collaborators of the router. Statistics, Metrics, Limiter
// and Pages are optional.
type Deps struct {
	Service    *analysis.Service
	Statistics *logging.Statistics
	Metrics    *middleware.Metrics
	Limiter    *middleware.RateLimiter
	Pages      *analyzer.Analyzer
	Logger     *slog.Logger
}

type handler struct {
	svc    *analysis.Service
	stats  *logging.Statistics
	pages  *analyzer.Analyzer
	logger *slog.Logger
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{svc: d.Service, stats: d.Statistics, pages: d.Pages, logger: logger}

	r := gin.New()
	if gin.Mode() == gin.DebugMode {
		r.Use(gin.Logger())
	}
	r.Use(middleware.ErrorHandler(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
		r.GET("/metrics", d.Metrics.Handler())
	}
	if d.Limiter != nil {
		r.Use(d.Limiter.RateLimit())
	}
	if d.Statistics != nil {
		r.Use(middleware.Stats(d.Statistics, logger))
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.health)

		prompts := api.Group("/prompts")
		prompts.POST("/test", h.testPrompts)
		prompts.POST("/single", h.singlePrompt)
		prompts.GET("/templates", h.promptTemplates)
		prompts.GET("/variations", h.promptVariations)

		api.POST("/competitors", h.competitors)
		api.POST("/domains", h.domains)
		api.GET("/domains/stats", h.domainStats)

		api.POST("/heatmap", h.heatmap)
		api.GET("/heatmap/report", h.heatmapReport)

		api.GET("/results/:kind", h.result)
		api.DELETE("/results/:kind", h.clearResult)

		api.GET("/citations/extract", h.extractURLs)
		api.GET("/citations/presence", h.brandPresence)

		api.GET("/statistics", h.statistics)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
