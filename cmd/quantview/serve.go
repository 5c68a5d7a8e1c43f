package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/quantview/internal/api"
	"github.com/newthinker/quantview/internal/app"
	"github.com/newthinker/quantview/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the QuantView server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Initialize logger
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	log.Info("starting QuantView server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("backtest_url", cfg.Backtest.BaseURL),
	)

	a := app.New(cfg, log)

	server, err := api.NewServer(api.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		TemplatesDir:   cfg.Server.TemplatesDir,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	}, api.Dependencies{App: a}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Session sweeper
	go func() {
		if err := a.Start(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("app error", zap.Error(err))
		}
	}()

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down QuantView server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = server.Shutdown(ctx)
	a.Stop()
	return err
}
