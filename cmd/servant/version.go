package main

import (
	"fmt"

	"github.com/spf13/cobra"

	servant "github.com/axondata/go-servant"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := servant.GetVersion()
		fmt.Fprintf(cmd.OutOrStdout(), "servant %s\ntag marker: %s\nprocess scanning: %t\n",
			info.Version, info.TagMarker, info.Scanning)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
