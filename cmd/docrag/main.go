package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"docrag/internal/config"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var cfg *config.AppConfig

	rootCmd := &cobra.Command{
		Use:           "docrag",
		Short:         "local semantic retrieval over long documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfgPath == "" {
				var path string
				cfg, path, err = config.LoadDefault()
				cfgPath = path
			} else {
				cfg, err = config.Load(cfgPath)
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger.Init(
				cfg.Log.File,
				cfg.Log.Level,
				cfg.Log.FileCount,
				cfg.Log.FileSize,
				cfg.Log.KeepDays,
				cfg.Log.Console,
			)
			logutil.GetLogger(cmd.Context()).Debug("config loaded", zap.String("config", cfgPath))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/docrag/config.yaml)")

	appConfig := func() *config.AppConfig { return cfg }
	rootCmd.AddCommand(
		newIngestCmd(appConfig),
		newSearchCmd(appConfig),
		newTUICmd(appConfig),
		newStatsCmd(appConfig),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
