package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gouq/adapters/excel"
	"gouq/app"
	"gouq/domain/core"
	"gouq/domain/geometry"
	"gouq/domain/run"
	"gouq/internal"
	"gouq/internal/config"
	"gouq/internal/container"
	"gouq/internal/samples"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gouq",
		Short: "gouq CLI for Bayesian inversion of the deblurring test problem",
	}

	rootCmd.AddCommand(
		newSampleCmd(),
		newMAPCmd(),
		newRunsCmd(),
		newReportCmd(),
		newInspectCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// requestFlags binds the run request flags shared by sample and map
func requestFlags(cmd *cobra.Command, req *run.Request) {
	cmd.Flags().StringVar(&req.Prior, "prior", run.PriorGaussian, "Prior: gaussian|gmrf|cauchy|laplace")
	cmd.Flags().StringVar(&req.Boundary, "boundary", "zero", "GMRF boundary condition: zero|periodic|neumann|backward|none")
	cmd.Flags().Float64Var(&req.Scale, "scale", 0, "Prior scale (0 selects the prior's default)")
	cmd.Flags().Float64Var(&req.Precision, "precision", 0, "GMRF precision (0 selects the default)")
	cmd.Flags().IntVar(&req.Samples, "samples", 0, "Number of posterior samples (0 selects DEFAULT_SAMPLES)")
	cmd.Flags().Uint64Var(&req.Seed, "seed", 0, "Random seed (0 selects SAMPLER_SEED)")
	cmd.Flags().IntVar(&req.N, "n", 0, "Number of grid points")
	cmd.Flags().Float64Var(&req.NoiseStd, "noise", 0, "Observation noise standard deviation")
}

// newContainer loads .env and configuration and wires storage and the service
func newContainer(ctx context.Context, exportDir string) (*container.Container, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if exportDir != "" {
		cfg.Paths.ExportDir = exportDir
	}

	c, err := container.New(cfg, internal.NewDefaultLogger())
	if err != nil {
		return nil, err
	}
	if err := c.InitStorage(ctx); err != nil {
		return nil, err
	}
	if err := c.InitService(false); err != nil {
		c.Shutdown(ctx)
		return nil, err
	}
	return c, nil
}

func newSampleCmd() *cobra.Command {
	var req run.Request
	var exportDir string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw posterior samples and print the run report",
		Long: `Sample the posterior of the 1D deblurring problem.

The strategy is chosen from the prior: Gaussian priors are sampled exactly,
GMRF priors with pCN and heavy-tailed priors with component-wise
Metropolis-Hastings. The chain is exported to EXPORT_DIR as an xlsx workbook.

Example: gouq sample --prior laplace --samples 2000 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(cmd.Context(), req, exportDir)
		},
	}

	requestFlags(cmd, &req)
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "Directory for xlsx exports (overrides EXPORT_DIR)")
	return cmd
}

func runSample(ctx context.Context, req run.Request, exportDir string) error {
	c, err := newContainer(ctx, exportDir)
	if err != nil {
		return err
	}
	defer c.Shutdown(ctx)

	if req.Seed == 0 {
		req.Seed = c.Config.Sampling.Seed
	}

	r, err := c.Service.Sample(ctx, req)
	if r != nil {
		fmt.Println(app.RenderReport(r))
	}
	return err
}

func newMAPCmd() *cobra.Command {
	var req run.Request
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Compute the MAP estimate under a Gaussian prior",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMAP(cmd.Context(), req, asJSON)
		},
	}

	requestFlags(cmd, &req)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full estimate as JSON")
	return cmd
}

func runMAP(ctx context.Context, req run.Request, asJSON bool) error {
	c, err := newContainer(ctx, "")
	if err != nil {
		return err
	}
	defer c.Shutdown(ctx)

	if req.Seed == 0 {
		req.Seed = c.Config.Sampling.Seed
	}

	result, err := c.Service.MAP(ctx, req)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Prior: %s  n=%d  noise=%g  seed=%d\n", result.Request.Prior, result.Request.N, result.Request.NoiseStd, result.Request.Seed)
	fmt.Printf("Relative error: %.4f\n", result.RelativeError)
	return nil
}

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded sampling runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func runList(ctx context.Context, limit int) error {
	c, err := newContainer(ctx, "")
	if err != nil {
		return err
	}
	defer c.Shutdown(ctx)

	runs, err := c.Service.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-9s  %-8s  %-24s  %s\n", r.ID, r.Status, r.Request.Prior, r.Strategy, r.CreatedAt.Time().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func newReportCmd() *cobra.Command {
	var html bool

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Print the report of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseRunID(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id: %w", err)
			}
			return runReport(cmd.Context(), id, html)
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "Render the report as HTML")
	return cmd
}

func runReport(ctx context.Context, id core.RunID, html bool) error {
	c, err := newContainer(ctx, "")
	if err != nil {
		return err
	}
	defer c.Shutdown(ctx)

	md, err := c.Service.Report(ctx, id)
	if err != nil {
		return err
	}
	if html {
		os.Stdout.Write(app.MarkdownToHTML(md))
		return nil
	}
	fmt.Println(md)
	return nil
}

func newInspectCmd() *cobra.Command {
	var burnIn, thin int
	var credible float64

	cmd := &cobra.Command{
		Use:   "inspect [workbook.xlsx]",
		Short: "Summarize the chain stored in an exported workbook",
		Long: `Read the Chain sheet of an exported workbook, optionally discard a burn-in
prefix and thin, and print per-parameter statistics.

Example: gouq inspect exports/run-0192....xlsx --burn-in 500 --thin 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0], burnIn, thin, credible)
		},
	}

	cmd.Flags().IntVar(&burnIn, "burn-in", 0, "Samples to discard from the start of the chain")
	cmd.Flags().IntVar(&thin, "thin", 1, "Keep every n-th sample after burn-in")
	cmd.Flags().Float64Var(&credible, "credible", app.CredibleLevel, "Credible interval percent")
	return cmd
}

func runInspect(path string, burnIn, thin int, credible float64) error {
	exported, err := excel.ReadChain(path)
	if err != nil {
		return err
	}
	geom, err := geometry.NewDiscrete(exported.Labels)
	if err != nil {
		return err
	}
	s, err := samples.New(exported.Chain, geom)
	if err != nil {
		return err
	}
	if burnIn > 0 || thin > 1 {
		if s, err = s.BurnThin(burnIn, thin); err != nil {
			return err
		}
	}
	summary, err := s.Summarize(credible)
	if err != nil {
		return err
	}

	fmt.Printf("%d parameters, %d samples\n", s.Dim(), s.Len())
	fmt.Printf("%-10s %12s %12s %12s %12s %12s\n", "param", "mean", "std", "median", "lower", "upper")
	fmt.Println(strings.Repeat("-", 76))
	for _, p := range summary {
		fmt.Printf("%-10s %12.5f %12.5f %12.5f %12.5f %12.5f\n", p.Label, p.Mean, p.Std, p.Median, p.Lower, p.Upper)
	}
	return nil
}
