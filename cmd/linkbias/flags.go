package main

import (
	"github.com/spf13/cobra"

	"linkbias/domain/stats"
	"linkbias/internal/config"
)

// studyFlags are the scenario overrides shared by every study command
type studyFlags struct {
	scenario string

	popSize int
	popSeed int64
	popFile string

	trials     int
	sampleSize int
	precision  float64
	mode       string
	cutoff     int
	center     bool
	confidence float64
	seed       int64

	workers    int
	failFast   bool
	keepTrials bool

	csvPrefix  string
	xlsxPath   string
	reportPath string
}

// register adds the scenario overrides plus the execution and export flags
func (f *studyFlags) register(cmd *cobra.Command, withMode bool) {
	f.registerScenario(cmd, withMode)

	fs := cmd.Flags()
	fs.IntVar(&f.workers, "workers", 0, "Parallel trial workers (default $LINKBIAS_WORKERS)")
	fs.BoolVar(&f.failFast, "fail-fast", false, "Abort on the first failed trial")
	fs.BoolVar(&f.keepTrials, "keep-trials", true, "Keep per-trial results in the stored run and exports")

	fs.StringVar(&f.csvPrefix, "csv", "", "Write <prefix>_summary.csv and <prefix>_trials.csv")
	fs.StringVar(&f.xlsxPath, "xlsx", "", "Write an XLSX workbook")
	fs.StringVar(&f.reportPath, "report", "", "Write a report (.md or .html)")
}

func (f *studyFlags) registerScenario(cmd *cobra.Command, withMode bool) {
	fs := cmd.Flags()
	fs.StringVar(&f.scenario, "scenario", "", "YAML scenario file (default $LINKBIAS_SCENARIO)")

	fs.IntVar(&f.popSize, "population-size", 0, "Number of synthetic population records")
	fs.Int64Var(&f.popSeed, "population-seed", 0, "Seed of the population generator")
	fs.StringVar(&f.popFile, "population-file", "", "Read the population from a CSV or XLSX file with x and y columns")

	fs.IntVar(&f.trials, "trials", 0, "Monte Carlo trials")
	fs.IntVar(&f.sampleSize, "sample-size", 0, "Linked sample size n")
	fs.Float64Var(&f.precision, "precision", 0, "Linkage precision p (share of correct pairs)")
	if withMode {
		fs.StringVar(&f.mode, "mode", "", "Correction mode: none|rescale|trim|robust")
	}
	fs.IntVar(&f.cutoff, "cutoff", 0, "Rows kept by influence-trim")
	fs.BoolVar(&f.center, "center", false, "Mean-center each sample before fitting")
	fs.Float64Var(&f.confidence, "confidence", 0, "Confidence level of per-trial slope intervals")
	fs.Int64Var(&f.seed, "seed", 0, "Base seed of the per-trial streams")
}

// load reads the scenario file and applies the flags that were set
func (f *studyFlags) load(cmd *cobra.Command, defaultPath string) (*config.Scenario, error) {
	path := f.scenario
	if path == "" {
		path = defaultPath
	}
	sc, err := config.LoadScenario(path)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("population-size") {
		sc.Population.Size = f.popSize
	}
	if changed("population-seed") {
		sc.Population.Seed = f.popSeed
	}
	if changed("population-file") {
		sc.Population.File = f.popFile
	}
	if changed("trials") {
		sc.Simulation.Trials = f.trials
	}
	if changed("sample-size") {
		sc.Simulation.SampleSize = f.sampleSize
	}
	if changed("precision") {
		sc.Simulation.Precision = f.precision
	}
	if changed("mode") {
		sc.Simulation.Mode = stats.CorrectionMode(f.mode)
	}
	if changed("cutoff") {
		sc.Simulation.Cutoff = f.cutoff
	}
	if changed("center") {
		sc.Simulation.Center = f.center
	}
	if changed("confidence") {
		sc.Simulation.Confidence = f.confidence
	}
	if changed("seed") {
		sc.Simulation.Seed = f.seed
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}
