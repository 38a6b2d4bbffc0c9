package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"linkbias/internal/api"
	"linkbias/internal/migration"
	"linkbias/ui"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON simulation API",
		Long: `Serve POST /api/simulations, GET /api/simulations and GET /api/simulations/:id.
Concurrent runs are limited by LINKBIAS_MAX_RUNS; excess requests get 429.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if port == "" {
				port = c.Config.Server.Port
			}
			gin.SetMode(c.Config.Server.GinMode)

			server := api.NewServer(c.Simulation, api.ServerConfig{
				MaxConcurrentRuns: c.Config.Simulation.MaxConcurrentRuns,
				RunTimeout:        c.Config.Simulation.RunTimeout,
				KeepTrials:        c.Config.Simulation.KeepTrials,
				MaxPopulation:     c.Config.Simulation.MaxPopulation,
			}, c.Logger)

			fmt.Printf("🚀 API on http://localhost:%s\n", port)
			return server.Run(cmd.Context(), ":"+port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default $PORT)")
	return cmd
}

func newUICmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Serve the report browser over stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if c.DB == nil {
				fmt.Println("⚠️  DATABASE_URL is not set; only runs made by this process are listed")
			}
			if port == "" {
				port = c.Config.Server.UIPort
			}

			app, err := ui.NewApp(c.Simulation, c.Logger)
			if err != nil {
				return err
			}
			fmt.Printf("🖥️  Reports on http://localhost:%s\n", port)
			return app.Start(cmd.Context(), ":"+port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default $UI_PORT)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the run tables in the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if c.DB == nil {
				return fmt.Errorf("DATABASE_URL is not set")
			}
			// bootstrap migrates on connect; the statements are idempotent
			if err := migration.NewRunner().Run(cmd.Context(), c.DB); err != nil {
				return err
			}
			fmt.Printf("✅ Schema %s ready on %s\n", migration.NewRunner().Version(), c.DB.DriverName())
			return nil
		},
	}
}
