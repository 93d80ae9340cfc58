package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/SanaAdeelKhan/geo-gap-compass/analysis"
	"github.com/SanaAdeelKhan/geo-gap-compass/gap"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHeader(w io.Writer, kind analysis.Kind, brand string, fetched time.Time) {
	fmt.Fprintf(w, "%s for %s (fetched %s)\n\n", kind, brand, fetched.Local().Format(time.RFC822))
}

func printMetadata(w io.Writer, md analysis.Metadata) {
	source := "mock data"
	if md.UsingRealProvider && !md.IsMock {
		source = "live AI provider"
	}
	fmt.Fprintf(w, "\nsource: %s, tokens used: %d\n", source, md.TokensUsed)
}

// printHeatmap renders the ranked gap table, or the raw body for a shape the
// normalizer did not understand.
func printHeatmap(w io.Writer, res analysis.HeatmapResult) error {
	printHeader(w, analysis.KindHeatmap, res.Brand, res.FetchedAt)
	if res.Payload.Competitor != nil {
		fmt.Fprintf(w, "competitor: %s\n\n", *res.Payload.Competitor)
	}
	if res.Payload.Opaque() {
		fmt.Fprintln(w, "unrecognised heatmap payload:")
		return printJSON(w, res.Payload.Raw)
	}
	rows := gap.Rank(res.Payload.Data)
	if len(rows) == 0 {
		fmt.Fprintln(w, "no content types returned")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTENT TYPE\tYOU\tCOMPETITOR\tGAP\tPRIORITY")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d (%s)\t%d (%s)\t%+d\t%s\n",
			gap.Label(r.ContentType),
			r.YourScore, r.YourBand,
			r.CompetitorScore, r.CompetitorBand,
			r.Gap, r.Priority)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printMetadata(w, res.Metadata)
	return nil
}

func printCompetitors(w io.Writer, res analysis.CompetitorResult) error {
	printHeader(w, analysis.KindCompetitor, res.Brand, res.FetchedAt)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPETITOR\tSCORE")
	for _, c := range res.Payload.Competitors {
		fmt.Fprintf(tw, "%s\t%.0f\n", c.Name, c.Score)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if res.Payload.DetailedAnalysis != "" {
		fmt.Fprintf(w, "\n%s\n", res.Payload.DetailedAnalysis)
	}
	printMetadata(w, res.Metadata)
	return nil
}

func printDomains(w io.Writer, res analysis.DomainInsightResult) error {
	printHeader(w, analysis.KindDomainInsight, res.Brand, res.FetchedAt)
	names := make([]string, 0, len(res.Payload.Domains))
	for name := range res.Payload.Domains {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tVISIBILITY\tTITLE")
	for _, name := range names {
		info := res.Payload.Domains[name]
		vis := "-"
		if info.VisibilityScore != nil {
			vis = fmt.Sprintf("%.0f", *info.VisibilityScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, vis, info.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printMetadata(w, res.Metadata)
	return nil
}

func printPromptTest(w io.Writer, res analysis.PromptTestResult) error {
	printHeader(w, analysis.KindPromptTest, res.Brand, res.FetchedAt)
	for i, r := range res.Payload.Results {
		fmt.Fprintf(w, "%d. %s\n", i+1, r.Prompt)
		if r.Error != "" {
			fmt.Fprintf(w, "   error: %s\n", r.Error)
			continue
		}
		for _, c := range r.Citations {
			fmt.Fprintf(w, "   - %s\n", c)
		}
	}
	printMetadata(w, res.Metadata)
	return nil
}

// printResult renders any stored result.
func printResult(w io.Writer, v any) error {
	switch res := v.(type) {
	case analysis.HeatmapResult:
		return printHeatmap(w, res)
	case analysis.CompetitorResult:
		return printCompetitors(w, res)
	case analysis.DomainInsightResult:
		return printDomains(w, res)
	case analysis.PromptTestResult:
		return printPromptTest(w, res)
	default:
		return printJSON(w, v)
	}
}
