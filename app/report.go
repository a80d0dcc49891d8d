package app

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"gonum.org/v1/gonum/floats"

	"gouq/domain/run"
)

// RenderReport formats a run as a markdown document
func RenderReport(r *run.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run %s\n\n", r.ID)
	fmt.Fprintf(&b, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Status | %s |\n", r.Status)
	fmt.Fprintf(&b, "| Prior | %s |\n", r.Request.Prior)
	fmt.Fprintf(&b, "| Boundary | %s |\n", r.Request.Boundary)
	switch r.Request.Prior {
	case run.PriorGMRF:
		fmt.Fprintf(&b, "| Precision | %g |\n", r.Request.Precision)
	default:
		fmt.Fprintf(&b, "| Scale | %g |\n", r.Request.Scale)
	}
	fmt.Fprintf(&b, "| Samples | %d |\n", r.Request.Samples)
	fmt.Fprintf(&b, "| Seed | %d |\n", r.Request.Seed)
	fmt.Fprintf(&b, "| Strategy | %s |\n", r.Strategy)
	fmt.Fprintf(&b, "| Fingerprint | `%s` |\n", r.Fingerprint.Fingerprint)
	fmt.Fprintf(&b, "| Elapsed | %d ms |\n", r.ElapsedMS)
	if r.Error != "" {
		fmt.Fprintf(&b, "\n**Error:** %s\n", r.Error)
		return b.String()
	}
	if r.Status != run.StatusCompleted {
		return b.String()
	}

	fmt.Fprintf(&b, "\n## Accuracy\n\nRelative error of the posterior mean: **%.4f**\n", r.RelativeError)
	if len(r.AcceptanceRate) > 0 {
		mean := floats.Sum(r.AcceptanceRate) / float64(len(r.AcceptanceRate))
		fmt.Fprintf(&b, "\nMean acceptance rate: %.3f (min %.3f, max %.3f)\n",
			mean, floats.Min(r.AcceptanceRate), floats.Max(r.AcceptanceRate))
	}
	if r.ExportPath != "" {
		fmt.Fprintf(&b, "\nSamples exported to `%s`\n", r.ExportPath)
	}

	fmt.Fprintf(&b, "\n## Posterior summary (%d%% credible interval)\n\n", CredibleLevel)
	fmt.Fprintf(&b, "| # | Location | Mean | Std | Median | Lower | Upper | ESS |\n|---|---|---|---|---|---|---|---|\n")
	for _, p := range r.Summary {
		fmt.Fprintf(&b, "| %d | %s | %.4f | %.4f | %.4f | %.4f | %.4f | %.0f |\n",
			p.Index, p.Label, p.Mean, p.Std, p.Median, p.Lower, p.Upper, p.ESS)
	}
	return b.String()
}

// MarkdownToHTML renders a report with tables and auto heading IDs
func MarkdownToHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.ToHTML([]byte(md), p, renderer)
}
