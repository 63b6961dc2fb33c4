package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"hexmap/internal/domain"
)

var treeDepth int

var treeCmd = &cobra.Command{
	Use:   "tree [center]",
	Short: "Display the region around a center as a tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := GetEngine()

		center := eng.Store.CurrentCenter()
		if len(args) == 1 {
			center = args[0]
		}
		if center == "" {
			return fmt.Errorf("no center set; pass one or run goto first")
		}

		depth := treeDepth
		if depth <= 0 {
			depth = eng.Store.Config().MaxDepth
		}
		if err := eng.Loader.LoadRegion(cmd.Context(), center, depth); err != nil {
			return err
		}
		items, err := eng.Store.ItemsWithinRegion(center, depth)
		if err != nil {
			return err
		}

		children := make(map[string][]domain.Item)
		byID := make(map[string]domain.Item, len(items))
		for _, item := range items {
			byID[item.Metadata.CoordID] = item
			if parent, ok := item.Metadata.Coord.Parent(); ok {
				pid := parent.ID()
				children[pid] = append(children[pid], item)
			}
		}
		for pid := range children {
			sort.Slice(children[pid], func(i, j int) bool {
				return children[pid][i].Metadata.CoordID < children[pid][j].Metadata.CoordID
			})
		}

		var render func(coordID string, indent int)
		render = func(coordID string, indent int) {
			if item, ok := byID[coordID]; ok {
				fmt.Printf("%s%s  %s\n", strings.Repeat("  ", indent), item.Metadata.CoordID, item.Data.Title)
			}
			for _, child := range children[coordID] {
				render(child.Metadata.CoordID, indent+1)
			}
		}
		render(center, 0)
		return nil
	},
}

func init() {
	treeCmd.Flags().IntVarP(&treeDepth, "depth", "d", 0, "region depth in generations (default: configured)")
	rootCmd.AddCommand(treeCmd)
}
