// Package main is the entrypoint for the collector agent.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/sysmon-2025.net/internal/adapter/identity"
	"gitlab.com/sysmon-2025.net/internal/adapter/logging"
	"gitlab.com/sysmon-2025.net/internal/adapter/sampler"
	"gitlab.com/sysmon-2025.net/internal/agent"
	"gitlab.com/sysmon-2025.net/internal/config"
)

// Version is set via ldflags.
var Version = "dev"

const flushTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "collector-agent",
		Short:        "Samples host memory and CPU and ships them to the collector server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "collector.yml", "path to the agent config file")

	rootCmd.AddCommand(
		newRunCmd(&configPath),
		newIDCmd(&configPath),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("collector-agent %s\n", Version)
		},
	}
}

func loadConfig(path string) (*config.AgentConfig, error) {
	cfg, err := config.LoadAgentConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func newIDCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "Print this collector's identifier, creating it if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			id, err := identity.NewFileStore(cfg.IdentityPath, logging.NewNopLogger()).LoadOrCreate()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	}
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Sample the host and deliver the samples until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runAgent(cfg)
		},
	}
}

func runAgent(cfg *config.AgentConfig) error {
	logger := logging.NewZapLoggerWithLevel(cfg.Debug)
	defer logger.Sync()

	id, err := identity.NewFileStore(cfg.IdentityPath, logger).LoadOrCreate()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := agent.New(
		id,
		sampler.NewHostSampler(),
		agent.NewTCPTransport(cfg.ServerAddress, cfg.DialTimeout, cfg.IOTimeout),
		agent.NewQueue(cfg.QueueConfig()),
		logger,
		cfg.LoopConfig(),
	)

	if err := collector.Run(ctx); err != nil {
		return err
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := collector.Flush(flushCtx); err != nil {
		logger.Warn("Undelivered samples discarded", "pending", collector.Queue().Len(), "error", err)
	}

	return nil
}
