package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var mvCmd = &cobra.Command{
	Use:   "mv <from-coord-id> <to-coord-id>",
	Short: "Move a tile to a free coordinate",
	Long: `Move a tile to a free coordinate on the same map.

Examples:
  hexmap-cli mv 1,0:2,3 1,0:4,1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := GetEngine().Mutator.Move(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Moved to %s\n", item.Metadata.CoordID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mvCmd)
}
