package wasm

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/basewasm-host/internal/bridge"
)

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctionsImpl

	hostOnce sync.Once
	hostErr  error
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs *HostFunctionsImpl, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, generates UUID).
	InstanceID string

	// Bridge receiving the instance's host calls. Registered before the
	// start functions run.
	Bridge *bridge.Bridge

	// Start functions called during instantiation. Missing ones are skipped.
	// Nil means "_start".
	StartFunctions []string

	// WASI stdout/stderr of the guest. Nil discards.
	Stdout io.Writer
	Stderr io.Writer
}

// Instance represents an instantiated Wasm module.
type Instance struct {
	// wazero module instance.
	module   api.Module
	compiled *CompiledModule

	// Instance metadata.
	ID   string
	Name string

	// Exported functions (cached for performance).
	exports map[string]api.Function

	runtime   *Runtime
	hostFuncs *HostFunctionsImpl
	closeOnce sync.Once
}

// Instantiate creates a new instance from a compiled module.
// The shared "env" host module is instantiated on first use.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	if limit := m.runtime.config.MaxInstances; limit > 0 && m.runtime.InstanceCount() >= limit {
		return nil, &InstanceLimitError{Limit: limit}
	}

	m.hostOnce.Do(func() {
		m.hostErr = m.hostFuncs.instantiateHostModule(ctx, m.runtime.runtime)
	})
	if m.hostErr != nil {
		return nil, m.hostErr
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	m.logger.Info("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	if config.Bridge != nil {
		m.hostFuncs.Register(instanceID, config.Bridge)
	}

	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithSysWalltime().
		WithSysNanotime()
	if config.StartFunctions != nil {
		moduleConfig = moduleConfig.WithStartFunctions(config.StartFunctions...)
	}
	if config.Stdout != nil {
		moduleConfig = moduleConfig.WithStdout(config.Stdout)
	}
	if config.Stderr != nil {
		moduleConfig = moduleConfig.WithStderr(config.Stderr)
	}

	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		m.hostFuncs.Unregister(instanceID)
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	instance := &Instance{
		module:    module,
		compiled:  compiled,
		ID:        instanceID,
		Name:      config.ModuleName,
		exports:   cacheExportedFunctions(module),
		runtime:   m.runtime,
		hostFuncs: m.hostFuncs,
	}

	m.runtime.StoreInstance(instance)

	m.logger.Info("Module instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(instance.exports)),
	)

	return instance, nil
}

// Module returns the underlying wazero module.
func (i *Instance) Module() api.Module {
	return i.module
}

// Close unregisters the instance's bridge and closes the module.
func (i *Instance) Close(ctx context.Context) error {
	var err error
	i.closeOnce.Do(func() {
		i.hostFuncs.Unregister(i.ID)
		i.runtime.DeleteInstance(i.ID)
		err = i.module.Close(ctx)
	})
	return err
}

// cacheExportedFunctions caches references to every exported function.
func cacheExportedFunctions(module api.Module) map[string]api.Function {
	defs := module.ExportedFunctionDefinitions()
	exports := make(map[string]api.Function, len(defs))
	for name := range defs {
		if fn := module.ExportedFunction(name); fn != nil {
			exports[name] = fn
		}
	}
	return exports
}
