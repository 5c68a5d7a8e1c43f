package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/newthinker/quantview/internal/client"
	"github.com/newthinker/quantview/internal/core"
	"github.com/newthinker/quantview/internal/dashboard"
	"github.com/newthinker/quantview/internal/logger"
	"github.com/spf13/cobra"
)

var (
	backtestCode string
	backtestFrom string
	backtestTo   string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy-id]",
	Short: "Run a backtest against the backtest service",
	Long:  "Run a strategy on one stock over a date range and print the six summary metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestCode, "code", core.DefaultStockCode, "Stock code")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", core.DefaultStartDate, "Start date YYYYMMDD")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYYMMDD (default today)")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	strategyID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid strategy id %q: %w", args[0], err)
	}

	req := core.BacktestRequest{
		StrategyID: strategyID,
		StockCode:  backtestCode,
		StartDate:  backtestFrom,
		EndDate:    backtestTo,
	}
	if req.EndDate == "" {
		req.EndDate = core.Today(time.Now())
	}
	if err := req.Validate(); err != nil {
		return err
	}

	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	c := client.New(cfg.Backtest.BaseURL, cfg.Backtest.Timeout, client.WithLogger(log))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== QuantView Backtest ===")
	fmt.Fprintf(out, "Strategy: %d\n", req.StrategyID)
	fmt.Fprintf(out, "Code:     %s\n", req.StockCode)
	fmt.Fprintf(out, "Period:   %s to %s\n", req.StartDate, req.EndDate)
	fmt.Fprintln(out)

	result, err := c.RunBacktest(cmd.Context(), req)
	if err != nil {
		return err
	}

	printResult(out, result)
	return nil
}

func printResult(w io.Writer, result *core.BacktestResult) {
	for _, card := range dashboard.FormatMetrics(result.Metrics) {
		fmt.Fprintf(w, "%s\t%s\n", card.Label, card.Value)
	}
	for _, chart := range dashboard.ResultCharts(result) {
		status := "missing"
		if chart.Ready() {
			status = "included"
		}
		fmt.Fprintf(w, "%s\t%s\n", chart.Title, status)
	}
}
