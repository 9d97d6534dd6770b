package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hstrader/client"
	"hstrader/config"
	"hstrader/internal/metrics"
	"hstrader/internal/session"
	"hstrader/logger"
)

var version = "dev"

type rootOptions struct {
	configPath string
	strategy   string

	// cfg is set by setup once configuration has loaded.
	cfg *config.Config
}

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "hstrader",
		Short:        "HS Trader brokerage client",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file (defaults to config.yml, or environment only when absent)")
	cmd.PersistentFlags().StringVar(&opts.strategy, "strategy", "", "Transport strategy override: auto, stream_only or request_only")

	cmd.AddCommand(
		newStreamCmd(opts),
		newSymbolsCmd(opts),
		newHistoryCmd(opts),
		newAccountCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// setup loads configuration, configures logging and metrics and returns a
// logged-in client together with a context cancelled on SIGINT/SIGTERM.
func setup(opts *rootOptions) (context.Context, context.CancelFunc, *client.Client, error) {
	log := logger.GetLogger()

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		return nil, nil, nil, err
	}
	if err := applyStrategy(cfg, opts.strategy); err != nil {
		log.WithError(err).Error("Invalid --strategy")
		return nil, nil, nil, err
	}
	opts.cfg = cfg

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		return nil, nil, nil, err
	}
	metrics.Configure(cfg.Metrics)

	log.WithFields(logger.Fields{
		"service":  cfg.Client.Name,
		"version":  cfg.Client.Version,
		"env":      config.AppEnvironment(),
		"strategy": cfg.StrategyValue().String(),
	}).Info("starting hstrader")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	c, err := client.New(cfg)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	if _, err := c.Login(ctx); err != nil {
		cancel()
		log.WithError(err).Error("Login failed")
		return nil, nil, nil, err
	}

	if !cfg.Metrics.Disabled {
		metrics.StartReport(ctx, log, cfg.Metrics.ReportInterval, c.ReportFields)
	}
	return ctx, cancel, c, nil
}

// applyStrategy overrides the configured strategy; validation has already
// run, so the override is parsed here.
func applyStrategy(cfg *config.Config, strategy string) error {
	if strategy == "" {
		return nil
	}
	parsed, err := session.ParseStrategy(strategy)
	if err != nil {
		return fmt.Errorf("--strategy: %w", err)
	}
	cfg.Server.Strategy = parsed.String()
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	cfg, err := config.LoadConfig("")
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return config.FromEnv()
	}
	return nil, err
}
