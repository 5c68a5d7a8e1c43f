package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/newthinker/quantview/internal/client"
	"github.com/newthinker/quantview/internal/core"
	"github.com/newthinker/quantview/internal/dashboard"
	"github.com/newthinker/quantview/internal/logger"
	"github.com/spf13/cobra"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the strategies offered by the backtest service",
	Args:  cobra.NoArgs,
	RunE:  runStrategies,
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func runStrategies(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	c := client.New(cfg.Backtest.BaseURL, cfg.Backtest.Timeout, client.WithLogger(log))
	strategies := c.FetchStrategies(cmd.Context())

	printStrategies(cmd.OutOrStdout(), strategies)
	return nil
}

func printStrategies(w io.Writer, strategies []core.Strategy) {
	if len(strategies) == 0 {
		fmt.Fprintln(w, "No strategies available")
		return
	}
	for _, s := range strategies {
		fmt.Fprintf(w, "%3d  %s\n", s.ID, s.Name)
		if s.Description != "" {
			fmt.Fprintf(w, "     %s\n", s.Description)
		}
		if len(s.Params) > 0 {
			keys := make([]string, 0, len(s.Params))
			for k := range s.Params {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts := make([]string, 0, len(keys))
			for _, k := range keys {
				parts = append(parts, fmt.Sprintf("%s=%g", dashboard.HumanizeKey(k), s.Params[k]))
			}
			fmt.Fprintf(w, "     %s\n", strings.Join(parts, ", "))
		}
	}
}
