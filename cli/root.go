package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/SanaAdeelKhan/geo-gap-compass/analysis"
	"github.com/SanaAdeelKhan/geo-gap-compass/config"
	"github.com/SanaAdeelKhan/geo-gap-compass/logging"
	"github.com/SanaAdeelKhan/geo-gap-compass/remote"
	"github.com/SanaAdeelKhan/geo-gap-compass/store"
)

var Version = "dev"

// app carries the loaded configuration and the persistent flags.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	apiURL   string
	driver   string
	dataDir  string
	logLevel string
	asJSON   bool

	provider store.Provider
}

// NewRootCmd builds the geogap command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:     "geogap",
		Version: Version,
		Short:   "Find where competitors out-rank your brand in AI answers",
		Long: `geogap runs GEO visibility analyses against the analytics backend and
keeps the latest result of every kind so it can be shown again later.

Examples:
  geogap heatmap --brand Nike --source brand-missing
  geogap competitors --brand Nike --competitors Adidas,Puma
  geogap show heatmap
  geogap serve`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.apiURL, "api-url", "", "analytics backend URL (overrides GEO_API_URL)")
	pf.StringVar(&a.driver, "store", "", "result store driver: memory, file, redis, s3, postgres")
	pf.StringVar(&a.dataDir, "data-dir", "", "directory of the file store")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		newServeCmd(a),
		newHealthCmd(a),
		newPromptsCmd(a),
		newCompetitorsCmd(a),
		newDomainsCmd(a),
		newHeatmapCmd(a),
		newShowCmd(a),
		newClearCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.Backend.URL = a.apiURL
	}
	if a.driver != "" {
		cfg.Store.Driver = a.driver
	}
	if a.dataDir != "" {
		cfg.Store.DataDir = a.dataDir
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = logging.NewLoggerTo(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) client(opts ...remote.Option) *remote.Client {
	if t := a.cfg.Backend.Timeout; t > 0 {
		opts = append(opts, remote.WithHTTPClient(&http.Client{Timeout: t}))
	}
	return remote.New(a.cfg.Backend.URL, opts...)
}

func (a *app) open(ctx context.Context) (store.Provider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	p, err := store.Open(ctx, a.cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Driver, err)
	}
	a.provider = p
	return p, nil
}

// service wires the analysis service over the configured store.
func (a *app) service(ctx context.Context, opts ...analysis.Option) (*analysis.Service, error) {
	p, err := a.open(ctx)
	if err != nil {
		return nil, err
	}
	opts = append([]analysis.Option{analysis.WithLogger(a.logger)}, opts...)
	return analysis.NewService(a.client(), analysis.NewStores(p, a.logger), opts...), nil
}

func (a *app) close() error {
	if a.provider == nil {
		return nil
	}
	err := a.provider.Close()
	a.provider = nil
	return err
}

// commandContext bounds one-shot commands; serve manages its own lifetime.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 5*time.Minute)
}
