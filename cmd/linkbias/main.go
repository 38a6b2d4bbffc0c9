package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"linkbias/internal/config"
	"linkbias/internal/container"
	"linkbias/internal/errors"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ [%s] %v\n", errors.CodeFor(err), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "linkbias",
		Short: "Monte Carlo study of OLS slope bias from record-linkage false positives",
		Long: `linkbias draws linked samples with a known share of mismatched pairs from a
synthetic population, fits y on x, and compares correction strategies:

  none                     plain OLS
  known-precision-rescale  slope divided by the linkage precision p
  influence-trim           refit on the rows with the smallest Cook's distance
  robust-fit               Huber M-estimator

Configuration comes from the environment (see .env), an optional YAML scenario
(--scenario or LINKBIAS_SCENARIO), and flags, in increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newPopulationCmd(),
		newSampleCmd(),
		newSimulateCmd(),
		newCompareCmd(),
		newSweepCutoffCmd(),
		newSweepPrecisionCmd(),
		newServeCmd(),
		newUICmd(),
		newMigrateCmd(),
		newShowCmd(),
	)

	return rootCmd
}

// bootstrap loads configuration and wires the container, connecting to the
// database when one is configured
func bootstrap(ctx context.Context) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	c, err := container.New(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.HasDatabase() {
		if err := c.InitWithDatabase(ctx); err != nil {
			return nil, errors.DatabaseError("failed to initialise database", err)
		}
	}
	return c, nil
}
