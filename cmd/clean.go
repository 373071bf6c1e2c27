package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/simplest/internal/build"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the output directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := build.New(cfg).Clean(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Removed", cfg.Output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
