// Package host wires the Wasm runtime, the guest apps and the text bridge
// together and drives a guest through its frame loop.
package host

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/woxQAQ/basewasm-host/internal/bridge"
	"github.com/woxQAQ/basewasm-host/internal/config"
	"github.com/woxQAQ/basewasm-host/internal/console"
	"github.com/woxQAQ/basewasm-host/internal/guest"
	"github.com/woxQAQ/basewasm-host/internal/metrics"
	"github.com/woxQAQ/basewasm-host/internal/wasm"
)

// Options overrides the host's I/O. Zero values are derived from the
// configuration and the process.
type Options struct {
	// Console receives guest text and bridge messages.
	Console bridge.Console
	// Stdout and Stderr receive the guest's WASI output.
	Stdout io.Writer
	Stderr io.Writer
	// Resizes delivers host size changes. Nil watches the terminal.
	Resizes <-chan Size
}

// Host owns the runtime and every guest instance started from it.
type Host struct {
	cfg       *config.HostConfig
	logger    *zap.Logger
	runtime   *wasm.Runtime
	hostFuncs *wasm.HostFunctionsImpl
	manager   *guest.Manager
	metrics   *metrics.Collector

	console bridge.Console
	stdout  io.Writer
	stderr  io.Writer
	resizes <-chan Size
}

// New creates the runtime and loads the apps found under cfg.AppPaths.
func New(ctx context.Context, cfg *config.HostConfig, logger *zap.Logger, opts Options) (*Host, error) {
	wasmConfig := &wasm.RuntimeConfig{
		MemoryPages:      cfg.Wasm.MemoryPages,
		DebugEnabled:     cfg.Wasm.Debug,
		CacheDir:         cfg.Wasm.CacheDir,
		MaxInstances:     cfg.Wasm.MaxInstances,
		ExecutionTimeout: cfg.Wasm.ExecutionTimeoutDuration(),
	}

	runtime, err := wasm.NewRuntime(ctx, logger, wasmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	hostFuncs := wasm.NewHostFunctions(logger)
	manager := guest.NewManager(cfg.AppPaths, runtime, hostFuncs, logger)
	if err := manager.LoadAll(ctx); err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("failed to load apps: %w", err)
	}

	h := &Host{
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "host")),
		runtime:   runtime,
		hostFuncs: hostFuncs,
		manager:   manager,
		metrics:   metrics.NewCollector(),
		console:   opts.Console,
		stdout:    opts.Stdout,
		stderr:    opts.Stderr,
		resizes:   opts.Resizes,
	}

	if h.console == nil {
		if cfg.Bridge.Console == "log" {
			h.console = console.NewZap(logger)
		} else {
			h.console = console.NewWriter(os.Stdout)
		}
	}
	if h.stdout == nil {
		h.stdout = os.Stdout
	}
	if h.stderr == nil {
		h.stderr = os.Stderr
	}

	h.logger.Info("Host initialized",
		zap.Int("apps", manager.Registry().Count()),
		zap.Int("compiled_modules", runtime.Stats().Modules),
		zap.Uint32("wasm_memory_pages", cfg.Wasm.MemoryPages),
		zap.String("console", cfg.Bridge.Console),
	)

	return h, nil
}

// Apps returns the names of the loaded apps.
func (h *Host) Apps() []string {
	apps := h.manager.Registry().List()
	names := make([]string, 0, len(apps))
	for _, app := range apps {
		names = append(names, app.Name())
	}
	return names
}

// LoadDir loads an app directory that is not under the configured paths.
func (h *Host) LoadDir(ctx context.Context, dir string) (string, error) {
	app, err := h.manager.LoadDir(ctx, dir)
	if err != nil {
		return "", err
	}
	return app.Name(), nil
}

// Metrics returns the host's collectors.
func (h *Host) Metrics() *metrics.Collector {
	return h.metrics
}

// Close gracefully shuts down the host.
func (h *Host) Close(ctx context.Context) error {
	h.logger.Info("Shutting down host")

	if err := h.manager.Shutdown(ctx); err != nil {
		h.logger.Error("Failed to shutdown app manager", zap.Error(err))
		return err
	}

	h.logger.Info("Host shutdown complete")
	return nil
}

func (h *Host) resolveApp(name string) (*guest.App, error) {
	if name != "" {
		return h.manager.GetApp(name)
	}
	apps := h.manager.Registry().List()
	switch len(apps) {
	case 0:
		return nil, &guest.NoAppsFoundError{Paths: h.cfg.AppPaths}
	case 1:
		return apps[0], nil
	default:
		return nil, fmt.Errorf("several apps loaded, pick one of %v", h.Apps())
	}
}
