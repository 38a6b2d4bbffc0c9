package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"linkbias/adapters/stats/regression"
	"linkbias/internal/config"
	"linkbias/internal/export"
	"linkbias/internal/population"
	"linkbias/internal/simulation"
)

func newPopulationCmd() *cobra.Command {
	var scenario, out string
	var size int
	var seed int64

	cmd := &cobra.Command{
		Use:   "population",
		Short: "Generate the synthetic population and write it to a file",
		Long: `Generate P records from y = β0 + β1·x + ε and write them as CSV or XLSX,
depending on the extension of --out.

Example: linkbias population --size 100000 --seed 7 --out population.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := config.LoadScenario(scenario)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("size") {
				sc.Population.Size = size
			}
			if cmd.Flags().Changed("seed") {
				sc.Population.Seed = seed
			}
			if err := sc.Population.Validate(); err != nil {
				return err
			}

			pop, err := population.Generate(sc.Population)
			if err != nil {
				return err
			}
			fmt.Printf("🧬 Generated %d records: y = %g + %g·x\n", pop.Size(), sc.Population.Intercept, sc.Population.Slope)

			if out == "" {
				return nil
			}
			switch strings.ToLower(filepath.Ext(out)) {
			case ".xlsx":
				err = population.WriteXLSX(out, pop)
			default:
				err = population.WriteCSV(out, pop)
			}
			if err != nil {
				return err
			}
			fmt.Printf("📄 %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&scenario, "scenario", "", "YAML scenario file")
	cmd.Flags().IntVar(&size, "size", 0, "Number of records")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Generator seed")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (.csv or .xlsx)")
	return cmd
}

func newSampleCmd() *cobra.Command {
	var flags studyFlags
	var out string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw one biased linked sample and fit it",
		Long: `Draw a single linked sample of size n with precision p, print its match counts
and the OLS fit, and optionally write the rows with their provenance.

Example: linkbias sample --sample-size 1000 --precision 0.9 --seed 3 --out sample.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			sc, err := flags.load(cmd, c.Config.Paths.Scenario)
			if err != nil {
				return err
			}

			opts := simulation.ConfigFromParams(sc.Simulation, 1).SamplerOptions()
			sample, err := c.Simulation.DrawSample(ctx, sc.Population, opts, sc.Simulation.Seed)
			if err != nil {
				return err
			}
			fmt.Printf("🔗 %d rows: %d correct, %d mismatched\n", sample.Len(), sample.MatchedCount(), sample.MismatchedCount())

			fit, err := regression.NewOLS().Fit(sample.Xs(), sample.Ys())
			if err != nil {
				return err
			}
			ci, err := regression.SlopeInterval(fit, sc.Simulation.Confidence)
			if err != nil {
				return err
			}
			fmt.Printf("📈 OLS: intercept %.4f, slope %.4f (SE %.4f), %g%% CI [%.4f, %.4f]\n",
				fit.Intercept, fit.Slope, fit.SlopeSE, 100*sc.Simulation.Confidence, ci.Lower, ci.Upper)

			if out == "" {
				return nil
			}
			path := outputPath(c.Config.Paths.OutputDir, out)
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := export.WriteSampleCSV(f, sample); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("📄 %s\n", path)
			return nil
		},
	}

	flags.registerScenario(cmd, false)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the sample rows to a CSV file")
	return cmd
}
