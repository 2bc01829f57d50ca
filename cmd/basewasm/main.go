package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/woxQAQ/basewasm-host/internal/config"
	"github.com/woxQAQ/basewasm-host/internal/host"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	appName := flag.String("app", "", "App to run (default: the only loaded app)")
	appDir := flag.String("dir", "", "Load an extra app directory outside app_paths")
	frames := flag.Int("frames", 0, "Stop after this many frames (0 runs until interrupted)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadHostConfig(*configPath)
	if err != nil {
		bootstrap, _ := zap.NewProduction()
		bootstrap.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *logLevel != "" {
		if err := cfg.OverrideLogLevel(*logLevel); err != nil {
			bootstrap, _ := zap.NewProduction()
			bootstrap.Fatal("Invalid -log-level", zap.String("level", *logLevel), zap.Error(err))
		}
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.LogLevel == "debug" {
		logger, _ = zap.NewDevelopment()
	} else {
		zcfg := zap.NewProductionConfig()
		if lvl, err := zap.ParseAtomicLevel(cfg.LogLevel); err == nil {
			zcfg.Level = lvl
		}
		logger, _ = zcfg.Build()
	}

	defer logger.Sync()

	logger.Info("Starting basewasm",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := host.New(ctx, cfg, logger, host.Options{})
	if err != nil {
		logger.Fatal("Failed to create host", zap.Error(err))
	}
	defer h.Close(context.Background())

	if *appDir != "" {
		name, err := h.LoadDir(ctx, *appDir)
		if err != nil {
			logger.Fatal("Failed to load app directory", zap.String("dir", *appDir), zap.Error(err))
		}
		if *appName == "" {
			*appName = name
		}
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := h.Run(ctx, host.RunOptions{App: *appName, Frames: *frames}); err != nil {
		logger.Error("Run failed", zap.Error(err))
		h.Close(context.Background())
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Host shutdown complete")
}
