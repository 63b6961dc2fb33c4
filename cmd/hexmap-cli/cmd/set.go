package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hexmap/internal/mutation"
)

var (
	setTitle   string
	setContent string
	setLink    string
)

var setCmd = &cobra.Command{
	Use:   "set <coord-id>",
	Short: "Update a tile's title, content, or link",
	Long: `Update a tile's fields. Only the flags you pass are changed.

Examples:
  hexmap-cli set 1,0:2 --title "Renamed"
  hexmap-cli set 1,0:2 --content "New body" --link https://example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req mutation.UpdateRequest
		if cmd.Flags().Changed("title") {
			req.Title = &setTitle
		}
		if cmd.Flags().Changed("content") {
			req.Content = &setContent
		}
		if cmd.Flags().Changed("link") {
			req.Link = &setLink
		}
		if req.Title == nil && req.Content == nil && req.Link == nil {
			return fmt.Errorf("nothing to change; pass --title, --content, or --link")
		}

		item, err := GetEngine().Mutator.Update(context.Background(), args[0], req)
		if err != nil {
			return err
		}

		fmt.Printf("Updated %s\n", item.Metadata.CoordID)
		return nil
	},
}

func init() {
	setCmd.Flags().StringVar(&setTitle, "title", "", "new title")
	setCmd.Flags().StringVar(&setContent, "content", "", "new content")
	setCmd.Flags().StringVar(&setLink, "link", "", "new link")
	rootCmd.AddCommand(setCmd)
}
