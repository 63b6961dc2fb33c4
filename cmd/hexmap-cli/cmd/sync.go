package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Force an immediate cache sync",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := GetEngine()
		result, err := eng.Syncer.ForceSync(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d regions (%d items)\n", result.RegionsReloaded, result.ItemsSynced)

		status := eng.Syncer.Status()
		fmt.Printf("syncs: %d  errors: %d\n", status.SyncCount, status.ErrorCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
