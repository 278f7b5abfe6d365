package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	servant "github.com/axondata/go-servant"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the workers running on this host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := servant.NewRegistry(cmd.Context(), servant.WithRegistryLogger(logger))
		if err != nil {
			return err
		}
		handles, err := reg.Handles()
		if err != nil {
			return err
		}
		dups := reg.Duplicates()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TAG\tNAME\tPID\tPORT\tDUPLICATES")
		for _, h := range handles {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", h.Tag(), h.Name, h.PID, h.Port, formatPIDs(dups[h.Tag()]))
		}
		return w.Flush()
	},
}

func formatPIDs(pids []int) string {
	if len(pids) == 0 {
		return "-"
	}
	parts := make([]string, len(pids))
	for i, pid := range pids {
		parts[i] = fmt.Sprint(pid)
	}
	return strings.Join(parts, ",")
}

func init() {
	rootCmd.AddCommand(listCmd)
}
