package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hexmap/internal/domain"
)

var showCmd = &cobra.Command{
	Use:   "show <coord-id>",
	Short: "Show a tile's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := GetEngine()
		coordID := args[0]

		item, ok := eng.Store.Item(coordID)
		if !ok {
			if err := eng.Loader.LoadItemChildren(context.Background(), coordID); err != nil {
				return err
			}
			item, ok = eng.Store.Item(coordID)
			if !ok {
				return domain.ErrNotFound.New("no item at %s", coordID)
			}
		}

		fmt.Printf("%s  %s\n", item.Metadata.CoordID, item.Data.Title)
		fmt.Printf("id: %s  depth: %d  owner: %s\n", item.Metadata.DBID, item.Metadata.Depth, item.Metadata.OwnerID)
		if item.Data.Link != "" {
			fmt.Printf("link: %s\n", item.Data.Link)
		}
		if item.Data.Content != "" {
			fmt.Printf("\n%s\n", item.Data.Content)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
