package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"hexmap/internal/navigation"
)

var gotoReplace bool

var gotoCmd = &cobra.Command{
	Use:   "goto <target>",
	Short: "Navigate to a tile and print its region",
	Long: `Navigate to a tile by coordinate id or database id, then print the
region around the new center.

Examples:
  hexmap-cli goto 1,0:2,3       # By coordinate
  hexmap-cli goto 42            # By database id`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := GetEngine()
		result := eng.Navigator.NavigateToItem(context.Background(), navigation.Request{
			Target:         args[0],
			ReplaceHistory: gotoReplace,
		})
		if result.Err != nil {
			return result.Err
		}

		center := eng.Store.CurrentCenter()
		fmt.Printf("Centered on %s\n", center)
		fmt.Printf("URL: %s\n", eng.History.Current())

		items, err := eng.Store.ItemsWithinRegion(center, eng.Store.Config().MaxDepth)
		if err != nil {
			return err
		}
		sort.Slice(items, func(i, j int) bool {
			return items[i].Metadata.CoordID < items[j].Metadata.CoordID
		})
		for _, item := range items {
			fmt.Printf("  %s  %s\n", item.Metadata.CoordID, item.Data.Title)
		}
		return nil
	},
}

func init() {
	gotoCmd.Flags().BoolVar(&gotoReplace, "replace", false, "replace the current history entry")
	rootCmd.AddCommand(gotoCmd)
}
