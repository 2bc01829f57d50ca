package guest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/basewasm-host/internal/bridge"
	"github.com/woxQAQ/basewasm-host/internal/wasm"
)

// Manager manages app lifecycle.
type Manager struct {
	paths       []string
	runtime     *wasm.Runtime
	loader      *Loader
	registry    *Registry
	instanceMgr *wasm.InstanceManager
	logger      *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewManager creates a new app manager discovering apps under paths.
func NewManager(
	paths []string,
	runtime *wasm.Runtime,
	hostFuncs *wasm.HostFunctionsImpl,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		paths:       paths,
		runtime:     runtime,
		loader:      NewLoader(runtime, logger),
		registry:    NewRegistry(logger),
		instanceMgr: wasm.NewInstanceManager(runtime, hostFuncs, logger),
		logger:      logger.With(zap.String("component", "guest-manager")),
	}
}

// LoadAll discovers and loads all apps from the configured paths.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("apps already loaded")
	}

	m.logger.Info("Loading apps", zap.Strings("paths", m.paths))

	apps, err := m.loader.DiscoverApps(ctx, m.paths)
	if err != nil {
		var none *NoAppsFoundError
		if errors.As(err, &none) {
			m.logger.Warn("No apps found in configured paths", zap.Strings("paths", m.paths))
			m.loaded = true
			return nil
		}
		return err
	}

	for _, app := range apps {
		if err := m.registry.Register(app); err != nil {
			m.logger.Error("Failed to register app",
				zap.String("name", app.Manifest.Name),
				zap.Error(err),
			)
			continue
		}
	}

	m.loaded = true

	m.logger.Info("Apps loaded successfully", zap.Int("count", m.registry.Count()))

	return nil
}

// LoadDir loads and registers the app in dir, outside the configured paths.
func (m *Manager) LoadDir(ctx context.Context, dir string) (*App, error) {
	app, err := m.loader.LoadApp(ctx, dir)
	if err != nil {
		return nil, err
	}
	if err := m.registry.Register(app); err != nil {
		return nil, err
	}
	return app, nil
}

// GetApp retrieves an app by name.
func (m *Manager) GetApp(name string) (*App, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	app, ok := m.registry.Get(name)
	if !ok {
		return nil, &AppNotFoundError{AppName: name}
	}

	return app, nil
}

// InstanceOptions configures one instance of an app.
type InstanceOptions struct {
	// Bridge receives the instance's host calls.
	Bridge *bridge.Bridge

	// WASI stdio of the guest.
	Stdout io.Writer
	Stderr io.Writer
}

// Instantiate creates a new instance of an app wired to opts.Bridge.
func (m *Manager) Instantiate(ctx context.Context, appName string, opts InstanceOptions) (*wasm.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	app, ok := m.registry.Get(appName)
	if !ok {
		return nil, &AppNotFoundError{AppName: appName}
	}

	config := &wasm.InstanceConfig{
		ModuleName:     app.Compiled.Name,
		Bridge:         opts.Bridge,
		StartFunctions: app.StartFunctions(),
		Stdout:         opts.Stdout,
		Stderr:         opts.Stderr,
	}

	return m.instanceMgr.Instantiate(ctx, config)
}

// Shutdown gracefully shuts down all apps.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down app manager")

	// Runtime close handles instance cleanup
	if err := m.runtime.Close(ctx); err != nil {
		m.logger.Error("Failed to shutdown runtime", zap.Error(err))
		return err
	}

	m.logger.Info("App manager shutdown complete")
	return nil
}

// Registry returns the app registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether apps have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
