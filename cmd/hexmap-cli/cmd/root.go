package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hexmap/internal/adapters/sqlite"
	"hexmap/internal/config"
	"hexmap/internal/engine"
)

var (
	dbPath  string
	verbose bool
	eng     *engine.Engine
	srv     *sqlite.Server
)

var rootCmd = &cobra.Command{
	Use:   "hexmap-cli",
	Short: "CLI for browsing and editing hexagonal maps",
	Long: `hexmap-cli is a command-line interface for a hexagonal map of tiles.

Tiles live at coordinates like 1,0:2,3 (owner 1, group 0, then child
positions). It provides commands to navigate, inspect, create, edit, move,
and delete tiles, and to sync the local cache.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		srv = sqlite.NewServer()
		if err := srv.Open(dbPath); err != nil {
			return err
		}

		logger := zap.NewNop()
		if verbose {
			var err error
			logger, err = zap.NewDevelopment()
			if err != nil {
				return err
			}
		}

		opts := engine.DefaultOptions()
		opts.Source = "cli"
		// One-shot process; the background scheduler has nothing to do.
		opts.Sync.Enabled = false
		eng = engine.New(logger, srv, opts)

		return eng.Bootstrap(context.Background(), config.RootCoordID())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if srv != nil {
			srv.Close()
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DatabasePath(), "path to the database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// GetEngine returns the initialized engine
func GetEngine() *engine.Engine {
	return eng
}
