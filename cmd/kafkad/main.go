// Package main is the entry point for the Kafka server
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moband/kaf/internal/config"
	"github.com/moband/kaf/internal/metrics"
	"github.com/moband/kaf/internal/server"
	"github.com/moband/kaf/pkg/logger"
)

// flags holds the command-line overrides
type flags struct {
	configPath  string
	host        string
	port        int
	logLevel    string
	metricsAddr string
}

// newRootCmd builds the command; runFn receives the validated configuration
func newRootCmd(runFn func(*config.Config) error) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:           "kafkad",
		Short:         "Minimal Kafka wire-protocol server",
		Long:          "kafkad answers ApiVersions, Fetch and DescribeTopicPartitions requests over the Kafka binary protocol.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.loadConfig(cmd)
			if err != nil {
				return err
			}
			return runFn(cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "path to a YAML config file")
	fs.StringVar(&f.host, "host", "", "listen host (overrides config)")
	fs.IntVarP(&f.port, "port", "p", 0, "listen port (overrides config)")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "admin HTTP address for /metrics and /healthz")
	return cmd
}

func main() {
	if err := newRootCmd(run).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig layers flags over the file and environment
func (f *flags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = f.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = f.port
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
	return cfg, cfg.Validate()
}

func run(cfg *config.Config) error {
	opts, err := cfg.LoggerOptions()
	if err != nil {
		return err
	}
	log := logger.NewWithOptions(opts)
	log.Info("Kafka server starting...")

	registry := metrics.NewRegistry(metrics.DefaultConfig())
	srv := server.New(server.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		MaxClients:    cfg.Server.MaxClients,
		MaxFrameBytes: cfg.Server.MaxFrameBytes,
		IdleTimeout:   cfg.Server.IdleTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
	}, log, server.WithMetrics(registry))

	// Create and start the server
	if err := srv.Start(); err != nil {
		return err
	}

	var admin *server.AdminServer
	if cfg.Metrics.Addr != "" {
		admin = server.NewAdminServer(cfg.Metrics.Addr, registry, srv.Serving, log)
		if err := admin.Start(); err != nil {
			srv.Stop()
			return err
		}
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for interrupt signal
	<-sigChan
	log.Info("Shutting down server...")

	if admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := admin.Stop(ctx); err != nil {
			log.Error("Error stopping admin server: %s", err.Error())
		}
	}

	// Stop the server
	return srv.Stop()
}
