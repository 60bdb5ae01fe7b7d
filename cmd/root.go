package cmd

import (
	"github.com/spf13/cobra"

	"worker-scribe/config"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{}
	rootCmd.AddCommand(server(config))
	rootCmd.AddCommand(sweep(config))
	return rootCmd
}
