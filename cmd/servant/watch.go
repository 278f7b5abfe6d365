package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the live workers recorded in the run directory as they change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := openRunDir()
		if err != nil {
			return err
		}
		if pruned, err := dir.Prune(); err != nil {
			logger.Warn("pruning run directory", zap.Error(err))
		} else if pruned > 0 {
			logger.Info("pruned stale records", zap.Int("count", pruned))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, cleanup, err := dir.Watch(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = cleanup() }()

		out := cmd.OutOrStdout()
		for ev := range events {
			if ev.Err != nil {
				logger.Warn("run directory event", zap.Error(ev.Err))
				continue
			}
			tags := make([]string, 0, len(ev.Workers))
			for tag := range ev.Workers {
				tags = append(tags, tag)
			}
			sort.Strings(tags)
			fmt.Fprintf(out, "%d workers\n", len(tags))
			for _, tag := range tags {
				fmt.Fprintf(out, "  %s\t%s\n", tag, formatPIDs(ev.Workers[tag]))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
