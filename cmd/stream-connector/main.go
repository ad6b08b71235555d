package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/YaganovValera/analytics-system/stream-connector/common/configloader"
	"github.com/YaganovValera/analytics-system/stream-connector/common/logger"
	"github.com/YaganovValera/analytics-system/stream-connector/common/shutdown"
	"github.com/YaganovValera/analytics-system/stream-connector/internal/app"
	"github.com/YaganovValera/analytics-system/stream-connector/internal/config"
)

type flags struct {
	configPath string
}

func (f *flags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "config/config.yaml", "path to config file (empty: defaults and env only)")
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "stream-connector",
		Short:         "Binance websocket stream connector",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f.configPath)
		},
	}
	f.bind(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			return configloader.PrintConfig(cmd.OutOrStdout(), cfg)
		},
	})
	return root
}

func run(parent context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log = log.With(zap.String("service", cfg.ServiceName), zap.String("version", cfg.ServiceVersion))

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	go shutdown.WaitForSignals(ctx, cancel, log)

	if err := app.Run(ctx, cfg, log); err != nil {
		log.Error("stream-connector failed", zap.Error(err))
		return err
	}
	return nil
}
