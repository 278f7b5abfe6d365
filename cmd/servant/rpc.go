package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	servant "github.com/axondata/go-servant"
)

var healthCmd = &cobra.Command{
	Use:   "health <name>",
	Short: "Query the health endpoint of a running worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := findWorker(cmd, args[0])
		if err != nil {
			return err
		}
		h, err := s.Health(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), h.Fields)
	},
}

var callCmd = &cobra.Command{
	Use:   "call <name> <func> [key=value...]",
	Short: "Invoke a function on a running worker",
	Long: `Invoke a function on a running worker and print the JSON result.
Argument values are decoded as JSON when possible, otherwise passed as strings.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		callArgs, err := parseCallArgs(args[2:])
		if err != nil {
			return err
		}
		s, err := findWorker(cmd, args[0])
		if err != nil {
			return err
		}
		out, err := s.Call(cmd.Context(), args[1], callArgs)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func findWorker(cmd *cobra.Command, name string) (*servant.Supervisor, error) {
	s, found, err := servant.Find(cmd.Context(), name, servant.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no worker running for %q", name)
	}
	return s, nil
}

// parseCallArgs turns key=value pairs into call arguments
func parseCallArgs(pairs []string) (servant.Args, error) {
	args := servant.Args{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		args[key] = v
	}
	return args, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(healthCmd, callCmd)
}
