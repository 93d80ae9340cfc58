package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/SanaAdeelKhan/geo-gap-compass/analysis"
	"github.com/SanaAdeelKhan/geo-gap-compass/analyzer"
	"github.com/SanaAdeelKhan/geo-gap-compass/api"
	"github.com/SanaAdeelKhan/geo-gap-compass/logging"
	"github.com/SanaAdeelKhan/geo-gap-compass/middleware"
	"github.com/SanaAdeelKhan/geo-gap-compass/remote"
	"github.com/SanaAdeelKhan/geo-gap-compass/stats"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for the browser UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	gin.SetMode(cfg.Server.GinMode)

	provider, err := a.open(ctx)
	if err != nil {
		return err
	}

	cacheStats, err := stats.NewStorage(provider, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := cacheStats.Shutdown(); err != nil {
			a.logger.Error("failed to flush page cache stats", "error", err)
		}
	}()

	pages := analyzer.New(analyzer.WithStats(cacheStats))
	defer pages.Shutdown()

	statistics := logging.Initialize(cfg.StatisticsPath(), cfg.DevMode)
	defer func() {
		if err := statistics.Save(); err != nil {
			a.logger.Error("failed to save statistics", "error", err)
		}
	}()

	metrics := middleware.NewMetrics()
	stores := analysis.NewStores(provider, a.logger)
	metrics.WatchSlots(func() map[string]bool {
		out := make(map[string]bool, len(analysis.Kinds))
		for _, k := range analysis.Kinds {
			_, ok := stores.Get(k)
			out[string(k)] = ok
		}
		return out
	})

	opts := []analysis.Option{
		analysis.WithLogger(a.logger),
		analysis.WithRecorder(statistics),
		analysis.WithRecorder(metrics),
	}
	if cfg.EnrichDomains {
		opts = append(opts, analysis.WithPageSource(pages))
	}
	svc := analysis.NewService(a.client(remote.WithObserver(metrics.ObserveRemote)), stores, opts...)

	router := api.NewRouter(api.Deps{
		Service:    svc,
		Statistics: statistics,
		Metrics:    metrics,
		Limiter:    middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Pages:      pages,
		Logger:     a.logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting",
			"addr", "http://localhost:"+cfg.Server.Port,
			"backend", cfg.Backend.URL,
			"store", cfg.Store.Driver,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
