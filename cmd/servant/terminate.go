package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	servant "github.com/axondata/go-servant"
)

var terminateAll bool

var terminateCmd = &cobra.Command{
	Use:   "terminate <name>... | --all",
	Short: "Stop workers",
	Long: `Stop the named workers, waiting until each has exited.
With --all every worker on the host is interrupted and the command returns
without waiting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if terminateAll {
			if len(args) > 0 {
				return errors.New("--all does not take worker names")
			}
			reg, err := servant.NewRegistry(cmd.Context(), servant.WithRegistryLogger(logger))
			if err != nil {
				return err
			}
			return reg.TerminateAll()
		}
		if len(args) == 0 {
			return errors.New("requires at least one worker name or --all")
		}

		opts, err := supervisorOptions()
		if err != nil {
			return err
		}

		var sups []*servant.Supervisor
		for _, name := range args {
			s, found, err := servant.Find(cmd.Context(), name, opts...)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: not running\n", name)
				continue
			}
			sups = append(sups, s)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), terminateTimeout)
		defer cancel()
		if err := newManager(opts).Terminate(ctx, sups...); err != nil {
			return err
		}
		for _, s := range sups {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: terminated\n", s.Name)
		}
		return nil
	},
}

func init() {
	terminateCmd.Flags().BoolVar(&terminateAll, "all", false, "interrupt every worker without waiting")
	rootCmd.AddCommand(terminateCmd)
}
