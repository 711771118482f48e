// Package main is the entrypoint for the collector server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"gitlab.com/sysmon-2025.net/internal/adapter/metrics"
	"gitlab.com/sysmon-2025.net/internal/adapter/redis/collectorport"
	"gitlab.com/sysmon-2025.net/internal/adapter/sqldb"
	"gitlab.com/sysmon-2025.net/internal/adapter/sqldb/timeseriesrepository"
	"gitlab.com/sysmon-2025.net/internal/config"
	"gitlab.com/sysmon-2025.net/internal/core/ports/secondary"
	"gitlab.com/sysmon-2025.net/internal/core/services/telemetry"
	logger2 "gitlab.com/sysmon-2025.net/internal/global/logger"
	http2 "gitlab.com/sysmon-2025.net/internal/http"
	"gitlab.com/sysmon-2025.net/internal/schedulerengine"
	"gitlab.com/sysmon-2025.net/internal/tcp"
)

// Version is set via ldflags.
var Version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "collector-server",
		Short:        "Receives host metrics from collectors and stores them",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCmd(), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("collector-server %s\n", Version)
		},
	}
}

func newRunCmd() *cobra.Command {
	var environment string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the TCP ingest server and the ops HTTP endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if environment != "" {
				if err := godotenv.Load(environment + ".env"); err != nil {
					return fmt.Errorf("error loading %s.env file: %w", environment, err)
				}
			}
			return runServer(config.NewSystemConfig())
		},
	}

	cmd.Flags().StringVar(&environment, "env", "", "load <env>.env before reading the environment")
	return cmd
}

func runServer(sysCfg *config.AppConfig) error {
	logger2.SetDebug(sysCfg.DebugMode)
	defer logger2.Sync()
	logger := logger2.Logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting collector server", "version", Version)

	db, err := sqldb.Open(ctx, sysCfg.DatabaseConfig.Driver, sysCfg.DatabaseConfig.Url)
	if err != nil {
		return err
	}
	defer db.Close()

	// SECONDARY PORTS
	timeseriesRepo := timeseriesrepository.NewTimeseriesRepository(db, logger)
	if err := timeseriesRepo.EnsureSchema(ctx); err != nil {
		return err
	}

	var registry secondary.CollectorRegistry
	if sysCfg.RedisConfig.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     sysCfg.RedisConfig.Url,
			Password: sysCfg.RedisConfig.Password,
			DB:       sysCfg.RedisConfig.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, collector registry degraded", "addr", sysCfg.RedisConfig.Url, "error", err)
		}
		registry = collectorport.NewCollectorRepository(redisClient, sysCfg.RedisConfig.CollectorTTL, logger)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	serverMetrics := metrics.NewServerMetrics(promRegistry)

	//services
	telemetrySvc := telemetry.NewTelemetryService(timeseriesRepo, registry, logger)

	//server
	tcpServer := tcp.NewTCPServer(
		telemetrySvc,
		logger,
		tcp.WithAddress(sysCfg.TCPConfig.ListenAddr),
		tcp.WithReadTimeout(sysCfg.TCPConfig.ReadTimeout),
		tcp.WithMaxPayload(sysCfg.TCPConfig.MaxPayload),
		tcp.WithMetrics(serverMetrics),
	)
	if err := tcpServer.Start(); err != nil {
		return err
	}

	schedulerSvc := schedulerengine.NewSchedulerEngine(sysCfg.ScheduleSvcCfg, telemetrySvc, serverMetrics, logger)
	if registry != nil {
		schedulerSvc.StartStatsEngine(ctx)
	}

	var httpServer *http2.Server
	if sysCfg.HTTPConfig.Enabled() {
		serviceProvider := http2.NewServiceProvider(telemetrySvc, tcpServer, promRegistry)
		httpServer = http2.NewServer(sysCfg.HTTPConfig.Port, "collector-server", *serviceProvider, logger)
		if err := httpServer.Init(); err != nil {
			return err
		}
		if err := httpServer.Start(ctx); err != nil {
			return err
		}
	}

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := tcpServer.Stop(shutdownCtx); err != nil {
		logger.Error("TCP server forced to shutdown", "error", err)
	}
	if httpServer != nil {
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("HTTP server forced to shutdown", "error", err)
		}
	}

	schedulerSvc.Wait()

	logger.Info("successfully shutdown server")
	return nil
}
