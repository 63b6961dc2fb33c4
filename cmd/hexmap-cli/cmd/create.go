package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hexmap/internal/domain"
	"hexmap/internal/mutation"
)

var (
	createContent string
	createLink    string
)

var createCmd = &cobra.Command{
	Use:   "create <coord-id> <title>",
	Short: "Create a tile at a free coordinate",
	Long: `Create a tile at a free coordinate.

Examples:
  hexmap-cli create 1,0:2 "Projects"
  hexmap-cli create 1,0:2,1 "Go services" --content "Notes..." --link https://example.com`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := domain.ParseID(args[0])
		if err != nil {
			return err
		}

		item, err := GetEngine().Mutator.Create(context.Background(), mutation.CreateRequest{
			Coord:   coord,
			Title:   args[1],
			Content: createContent,
			Link:    createLink,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Created %s (id %s)\n", item.Metadata.CoordID, item.Metadata.DBID)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createContent, "content", "", "tile content")
	createCmd.Flags().StringVar(&createLink, "link", "", "external link")
	rootCmd.AddCommand(createCmd)
}
