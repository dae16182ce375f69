package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/devon-brazier/rebalancer.v2/internal/app"
	"github.com/devon-brazier/rebalancer.v2/internal/config"
	"github.com/devon-brazier/rebalancer.v2/internal/logger"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "rebalancer",
		Short: "Multi-asset portfolio rebalancing bot",
		Long:  "Rebalances a crypto portfolio toward fixed target weights, live against Binance or replayed over historical klines.",
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "live",
		Short: "Run the live rebalancing loop",
		RunE:  runLive,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "backtest",
		Short: "Replay the strategy over historical prices and write a report",
		RunE:  runBacktest,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, func(), error) {
	// .env is optional; real deployments export API_KEY/SECRET_KEY directly.
	_ = godotenv.Load()

	path := cfgFile
	if path == "" {
		path = os.Getenv("REBALANCER_CONFIG")
	}
	if path == "" {
		path = "configs/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	closeLog, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing log file: %w", err)
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("configuration loaded (env=%s portfolio=%s)", cfg.App.Env, cfg.Portfolio.Path)
	return cfg, closeLog, nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Infof("shutdown complete")
	return nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := setup()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return app.RunBacktest(ctx, cfg)
}

func setupLogOutput(path string) (func(), error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return func() {}, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return func() { file.Close() }, nil
}
