package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SanaAdeelKhan/geo-gap-compass/analysis"
	"github.com/SanaAdeelKhan/geo-gap-compass/analyzer"
)

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the analytics backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			h := a.client().Health(ctx)
			if a.asJSON {
				return printJSON(cmd.OutOrStdout(), h)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend: %s\n", a.cfg.Backend.URL)
			fmt.Fprintf(out, "status:  %s\n", h.Status)
			fmt.Fprintf(out, "live AI: %t\n", h.AIProviderEnabled)
			if h.Error != "" {
				fmt.Fprintf(out, "error:   %s\n", h.Error)
			}
			if !h.Healthy() {
				return fmt.Errorf("backend is not healthy")
			}
			return nil
		},
	}
}

func newPromptsCmd(a *app) *cobra.Command {
	var (
		brand      string
		variations []string
	)
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Test how often AI answers cite the brand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			res, err := svc.RunPromptTest(ctx, brand, variations)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVarP(&brand, "brand", "b", "", "brand to test")
	cmd.Flags().StringSliceVarP(&variations, "variation", "v", nil, "prompt variation (repeatable)")
	return cmd
}

func newCompetitorsCmd(a *app) *cobra.Command {
	var (
		brand       string
		competitors []string
	)
	cmd := &cobra.Command{
		Use:   "competitors",
		Short: "Score competitors against the brand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			res, err := svc.RunCompetitors(ctx, brand, competitors)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVarP(&brand, "brand", "b", "", "your brand")
	cmd.Flags().StringSliceVarP(&competitors, "competitors", "c", nil, "comma separated competitor names")
	return cmd
}

func newDomainsCmd(a *app) *cobra.Command {
	var (
		brand        string
		domains      []string
		analysisType string
		enrich       bool
	)
	cmd := &cobra.Command{
		Use:   "domains",
		Short: "Analyze which domains AI answers trust for the brand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			var opts []analysis.Option
			if enrich {
				pages := analyzer.New()
				defer pages.Shutdown()
				opts = append(opts, analysis.WithPageSource(pages))
			}
			svc, err := a.service(ctx, opts...)
			if err != nil {
				return err
			}
			res, err := svc.RunDomains(ctx, brand, domains, analysisType)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVarP(&brand, "brand", "b", "", "your brand")
	cmd.Flags().StringSliceVarP(&domains, "domains", "d", nil, "comma separated domains")
	cmd.Flags().StringVar(&analysisType, "type", "", "analysis type (default comprehensive)")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "fill missing titles from the live pages")
	return cmd
}

func newHeatmapCmd(a *app) *cobra.Command {
	var (
		req    analysis.HeatmapRequest
		source string
	)
	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Build the content-type gap heatmap",
		Long: `Build the content-type gap heatmap from one of three backend sources:

  gap            topic based gap heatmap (needs --topics)
  brand-gap      brand against one competitor (needs --competitor)
  brand-missing  prompt types where the brand is missing or strong`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			req.Source = analysis.HeatmapSource(source)
			res, err := svc.RunHeatmap(ctx, req)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&req.Brand, "brand", "b", "", "your brand")
	f.StringVarP(&source, "source", "s", string(analysis.SourceGap), "gap, brand-gap or brand-missing")
	f.StringSliceVarP(&req.Topics, "topics", "t", nil, "missing topics for the gap source")
	f.StringVarP(&req.Competitor, "competitor", "c", "", "competitor for the brand-gap source")
	f.StringSliceVar(&req.PromptTypes, "prompt-types", nil, "prompt types for the brand-missing source")
	return cmd
}

func (a *app) print(cmd *cobra.Command, res any) error {
	if a.asJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	return printResult(cmd.OutOrStdout(), res)
}
