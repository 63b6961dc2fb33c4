package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hexmap/internal/domain"
)

var visibilityCmd = &cobra.Command{
	Use:   "visibility <coord-id> <public|private>",
	Short: "Set a tile's visibility, cascading to its descendants",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		visibility := args[1]
		if visibility != domain.VisibilityPublic && visibility != domain.VisibilityPrivate {
			return fmt.Errorf("visibility must be public or private, got: %s", visibility)
		}
		if err := GetEngine().Mutator.UpdateVisibility(context.Background(), args[0], visibility); err != nil {
			return err
		}
		fmt.Printf("Visibility of %s set to %s\n", args[0], visibility)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(visibilityCmd)
}
