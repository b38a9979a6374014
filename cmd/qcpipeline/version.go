package main

import "github.com/spf13/cobra"

// version is set via -ldflags "-X main.version=..." at release build time.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the qcpipeline version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		infof("qcpipeline %s", version)
		return nil
	},
}
