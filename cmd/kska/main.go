// Package main runs kska: it resolves the configured stream sources, materializes
// them on NATS JetStream and serves the local address listing over HTTP.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yoloz/kska/config"
	"github.com/yoloz/kska/engine"
	"github.com/yoloz/kska/gateway"
	"github.com/yoloz/kska/health"
	"github.com/yoloz/kska/metric"
	"github.com/yoloz/kska/natsclient"
	"github.com/yoloz/kska/netaddr"
	"github.com/yoloz/kska/source"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "kska"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, err := parseFlags(args)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("invalid flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting kska",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return err
	}

	descriptors, err := resolveSources(cfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		for _, d := range descriptors {
			slog.Info("Source resolved",
				"source", d.Name(),
				"kind", d.Kind().String(),
				"topics", d.Topics(),
				"event_time", d.EventTime().IsPresent())
		}
		slog.Info("Configuration is valid", "sources", len(descriptors))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, descriptors, cliCfg.ShutdownTimeout, logger)
}

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	loader.EnableValidation(true)

	cfg, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.EnsureInstanceID()
	slog.Debug("Configuration loaded", "config", cfg.String())
	return cfg, nil
}

func resolveSources(cfg *config.Config) ([]*source.Descriptor, error) {
	props, err := cfg.SourceProperties()
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	descriptors, err := source.ResolveAll(props)
	if err != nil {
		return nil, fmt.Errorf("resolve sources: %w", err)
	}
	return descriptors, nil
}

func serve(
	ctx context.Context,
	cfg *config.Config,
	descriptors []*source.Descriptor,
	shutdownTimeout time.Duration,
	logger *slog.Logger,
) error {
	registry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()

	natsClient, err := connectToNATS(ctx, cfg, registry.CoreMetrics(), monitor, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := natsClient.Close(closeCtx); err != nil {
			logger.Warn("NATS close failed", "error", err)
		}
	}()

	builder, err := engine.NewJetStreamBuilder(natsClient, cfg.ApplicationID,
		engine.WithLogger(logger),
		engine.WithMetrics(registry))
	if err != nil {
		return err
	}

	runners, err := materializeSources(ctx, descriptors, builder, registry.CoreMetrics(), monitor, logger)
	if err != nil {
		return err
	}

	server, err := newHTTPServer(cfg, registry, monitor, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	for _, r := range runners {
		g.Go(func() error {
			return r.run(gctx)
		})
	}

	slog.Info("kska started",
		"instance_id", cfg.InstanceID,
		"application_id", cfg.ApplicationID,
		"sources", len(runners))

	err = g.Wait()
	slog.Info("kska stopped")
	return err
}

func connectToNATS(
	ctx context.Context,
	cfg *config.Config,
	metrics *metric.Metrics,
	monitor *health.Monitor,
	logger *slog.Logger,
) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithReconnectWait(cfg.NATS.ReconnectWait),
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(metrics),
		natsclient.WithHealthChangeCallback(func(healthy bool) {
			if healthy {
				monitor.UpdateHealthy("nats", "connected")
			} else {
				monitor.UpdateUnhealthy("nats", "disconnected")
			}
		}),
	}
	if cfg.NATS.Name != "" {
		opts = append(opts, natsclient.WithName(cfg.NATS.Name))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}
	if cfg.NATS.TLS.Enabled {
		opts = append(opts, natsclient.WithTLS(cfg.NATS.TLS.ClientConfig()))
	}

	monitor.UpdateUnhealthy("nats", "connecting")
	client, err := natsclient.NewClient(strings.Join(cfg.NATS.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	slog.Info("Connecting to NATS", "urls", cfg.NATS.URLs)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}
	return client, nil
}

func newHTTPServer(
	cfg *config.Config,
	registry *metric.MetricsRegistry,
	monitor *health.Monitor,
	logger *slog.Logger,
) (*gateway.Server, error) {
	reporter, err := netaddr.NewReporter(
		netaddr.WithLogger(logger),
		netaddr.WithMetrics(registry),
		netaddr.WithRateLimit(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst))
	if err != nil {
		return nil, fmt.Errorf("create address reporter: %w", err)
	}

	opts := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithHealth(monitor.Handler(appName)),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, gateway.WithMetrics(registry.Handler()))
	}

	return gateway.NewServer(gateway.Config{
		Port:            cfg.HTTP.Port,
		IPPath:          cfg.HTTP.IPPath,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		TLS:             cfg.HTTP.TLS.ServerConfig(),
	}, reporter, opts...)
}
