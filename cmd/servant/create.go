package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <name>...",
	Short: "Attach to or spawn the workers for each name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := supervisorOptions()
		if err != nil {
			return err
		}

		sups, err := newManager(opts).Create(cmd.Context(), args...)

		names := make([]string, 0, len(sups))
		for name := range sups {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := sups[name]
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tpid=%d\tport=%d\t%s\n", name, s.Handle.PID, s.Handle.Port, s.State())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
