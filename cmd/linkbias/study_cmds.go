package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"linkbias/app"
	"linkbias/domain/core"
	"linkbias/domain/run"
	"linkbias/domain/stats"
	"linkbias/internal/config"
	"linkbias/internal/export"
	"linkbias/internal/report"
	"linkbias/internal/simulation"
)

func newSimulateCmd() *cobra.Command {
	var flags studyFlags

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one correction mode over many linked samples",
		Long: `Run T trials of the biased linked-sample generator and summarise the slope
estimates under a single correction mode.

Example: linkbias simulate --precision 0.9 --mode rescale --trials 1000 --report out.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStudy(cmd, &flags, run.KindSimulate, func(*config.Scenario) error { return nil })
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newCompareCmd() *cobra.Command {
	var flags studyFlags
	var modes []string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare correction modes on identical samples",
		Long: `Apply several correction modes to the same trial samples so differences
reflect the correction alone.

Example: linkbias compare --modes none,rescale,trim,robust --precision 0.95`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStudy(cmd, &flags, run.KindCompare, func(sc *config.Scenario) error {
				if cmd.Flags().Changed("modes") {
					sc.Modes = modes
				}
				return nil
			})
		},
	}
	flags.register(cmd, false)
	cmd.Flags().StringSliceVar(&modes, "modes", nil, "Modes to compare (default: all)")
	return cmd
}

func newSweepCutoffCmd() *cobra.Command {
	var flags studyFlags
	var cutoffs []int
	var from, to, step int

	cmd := &cobra.Command{
		Use:   "sweep-cutoff",
		Short: "Run influence-trim across a grid of cutoffs",
		Long: `Run influence-trim for each cutoff on shared samples. The report names the
cutoff closest to the true slope; that choice uses ground truth and is not an
estimator.

Example: linkbias sweep-cutoff --from 900 --to 1000 --step 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStudy(cmd, &flags, run.KindSweepCutoff, func(sc *config.Scenario) error {
				switch {
				case cmd.Flags().Changed("cutoffs"):
					sc.Cutoffs = cutoffs
				case gridChanged(cmd) || len(sc.Cutoffs) == 0:
					grid, err := simulation.CutoffGrid(from, to, step)
					if err != nil {
						return err
					}
					sc.Cutoffs = grid
				}
				return nil
			})
		},
	}
	flags.register(cmd, false)
	cmd.Flags().IntSliceVar(&cutoffs, "cutoffs", nil, "Explicit cutoff list")
	cmd.Flags().IntVar(&from, "from", 900, "First cutoff of the grid")
	cmd.Flags().IntVar(&to, "to", 1000, "Last cutoff of the grid")
	cmd.Flags().IntVar(&step, "step", 10, "Grid step")
	return cmd
}

func gridChanged(cmd *cobra.Command) bool {
	f := cmd.Flags()
	return f.Changed("from") || f.Changed("to") || f.Changed("step")
}

func newSweepPrecisionCmd() *cobra.Command {
	var flags studyFlags
	var precisions []float64

	cmd := &cobra.Command{
		Use:   "sweep-precision",
		Short: "Run one mode across linkage precisions",
		Long: `Run the chosen mode at each precision to tabulate bias against p.

Example: linkbias sweep-precision --mode none --precisions 1,0.95,0.9,0.8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStudy(cmd, &flags, run.KindSweepPrecision, func(sc *config.Scenario) error {
				if cmd.Flags().Changed("precisions") || len(sc.Precisions) == 0 {
					sc.Precisions = precisions
				}
				return nil
			})
		},
	}
	flags.register(cmd, true)
	cmd.Flags().Float64SliceVar(&precisions, "precisions", []float64{1, 0.99, 0.95, 0.9, 0.85, 0.8}, "Precision grid")
	return cmd
}

func newShowCmd() *cobra.Command {
	var csvPrefix, xlsxPath, reportPath string

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Print a stored run, optionally exporting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			id, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			rec, err := c.Simulation.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Printf("%s\n", report.Markdown(rec))
			return writeOutputs(c.Config.Paths.OutputDir, rec, csvPrefix, xlsxPath, reportPath)
		},
	}
	cmd.Flags().StringVar(&csvPrefix, "csv", "", "Write <prefix>_summary.csv and <prefix>_trials.csv")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write an XLSX workbook")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a report (.md or .html)")
	return cmd
}

func runStudy(cmd *cobra.Command, flags *studyFlags, kind run.Kind, adjust func(*config.Scenario) error) error {
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
	if err := adjust(sc); err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return err
	}

	req := app.SimulationRequest{
		Kind:       kind,
		Population: sc.Population,
		Simulation: sc.Simulation,
		Cutoffs:    sc.Cutoffs,
		Precisions: sc.Precisions,
		Workers:    flags.workers,
		FailFast:   flags.failFast,
		KeepTrials: flags.keepTrials && c.Config.Simulation.KeepTrials,
	}
	if kind == run.KindCompare {
		modes, err := sc.ParsedModes()
		if err != nil {
			return err
		}
		req.Modes = modes
	}
	// exports need the trials even when the store does not keep them
	if flags.csvPrefix != "" || flags.xlsxPath != "" {
		req.KeepTrials = flags.keepTrials
	}

	fmt.Printf("🔬 %s: %d trials, n = %d, p = %g, seed %d\n",
		kind, sc.Simulation.Trials, sc.Simulation.SampleSize, sc.Simulation.Precision, sc.Simulation.Seed)

	rec, err := c.Simulation.Execute(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("\n📊 Slope estimates (true slope %g)\n\n", sc.Population.Slope)
	fmt.Print(report.SummaryTable(rec.Summaries))
	printFailures(rec.Summaries)
	if c.DB != nil {
		fmt.Printf("\n💾 Stored run %s (%d ms)\n", rec.Manifest.RunID, rec.RuntimeMs)
	} else {
		fmt.Printf("\n⏱️  %d ms (run %s not stored; set DATABASE_URL to persist)\n", rec.RuntimeMs, rec.Manifest.RunID)
	}

	return writeOutputs(c.Config.Paths.OutputDir, rec, flags.csvPrefix, flags.xlsxPath, flags.reportPath)
}

func printFailures(summaries []stats.Summary) {
	for _, s := range summaries {
		if s.Failed > 0 {
			fmt.Printf("⚠️  %s: %d of %d trials failed\n", s.Mode, s.Failed, s.Trials)
		}
	}
}

func writeOutputs(outputDir string, rec *run.Record, csvPrefix, xlsxPath, reportPath string) error {
	if csvPrefix != "" {
		paths, err := export.WriteCSVFiles(outputPath(outputDir, csvPrefix), rec)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Printf("📄 %s\n", p)
		}
	}
	if xlsxPath != "" {
		path := outputPath(outputDir, xlsxPath)
		if err := export.WriteXLSX(path, rec); err != nil {
			return err
		}
		fmt.Printf("📄 %s\n", path)
	}
	if reportPath != "" {
		path := outputPath(outputDir, reportPath)
		content := report.Markdown(rec)
		if strings.EqualFold(filepath.Ext(path), ".html") {
			content = report.Page(rec)
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return err
		}
		fmt.Printf("📄 %s\n", path)
	}
	return nil
}

// outputPath places relative paths under dir when one is configured
func outputPath(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
