package wasm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// Runtime owns the wazero runtime shared by every guest of the process,
// the compiled module cache and the table of live instances.
type Runtime struct {
	runtime wazero.Runtime
	config  *RuntimeConfig
	logger  *zap.Logger

	modules   sync.Map // module name -> *CompiledModule
	instances sync.Map // instance ID -> *Instance

	closeOnce sync.Once
	closed    atomic.Bool
}

// RuntimeConfig holds runtime configuration.
type RuntimeConfig struct {
	// MemoryPages caps the linear memory of each guest (64KiB pages).
	MemoryPages uint32

	// DebugEnabled traces every guest and host function call at debug level.
	DebugEnabled bool

	// CacheDir persists compiled code across runs. Empty keeps it in memory.
	CacheDir string

	// MaxInstances caps live guest instances; 0 is unlimited.
	MaxInstances int

	// ExecutionTimeout bounds a single call into a guest export; 0 disables it.
	ExecutionTimeout time.Duration
}

// DefaultRuntimeConfig returns the configuration used when none is given.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MemoryPages:      256,
		MaxInstances:     16,
		ExecutionTimeout: 5 * time.Second,
	}
}

// RuntimeStats is a snapshot of the runtime's caches.
type RuntimeStats struct {
	Modules   int
	Instances int
}

// NewRuntime creates the wazero runtime and instantiates WASI, which
// Emscripten output imports for exit and stdio.
func NewRuntime(ctx context.Context, logger *zap.Logger, config *RuntimeConfig) (*Runtime, error) {
	if config == nil {
		config = DefaultRuntimeConfig()
	}

	// Cancelling a call context has to stop a spinning guest.
	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if config.MemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(config.MemoryPages)
	}
	if config.CacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(config.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache %s: %w", config.CacheDir, err)
		}
		rc = rc.WithCompilationCache(cache)
	}

	wr := wazero.NewRuntimeWithConfig(ctx, rc)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, wr); err != nil {
		_ = wr.Close(ctx)
		return nil, &HostFunctionError{FunctionName: wasi_snapshot_preview1.ModuleName, Err: err}
	}

	r := &Runtime{
		runtime: wr,
		config:  config,
		logger:  logger.With(zap.String("component", "wasm-runtime")),
	}

	r.logger.Info("Wasm runtime initialized",
		zap.Uint32("memory_pages", config.MemoryPages),
		zap.Bool("debug_enabled", config.DebugEnabled),
		zap.String("cache_dir", config.CacheDir),
		zap.Int("max_instances", config.MaxInstances),
		zap.Duration("execution_timeout", config.ExecutionTimeout),
	)

	return r, nil
}

// Close closes every live instance and then the wazero runtime. Later calls
// return nil.
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.logger.Info("Shutting down Wasm runtime", zap.Int("instances", r.InstanceCount()))

		r.instances.Range(func(_, value any) bool {
			inst := value.(*Instance)
			if closeErr := inst.Close(ctx); closeErr != nil {
				r.logger.Warn("Failed to close instance",
					zap.String("instance_id", inst.ID),
					zap.Error(closeErr),
				)
			}
			return true
		})

		err = r.runtime.Close(ctx)
		r.closed.Store(true)
		r.logger.Info("Wasm runtime shutdown complete")
	})
	return err
}

// IsClosed reports whether Close has run.
func (r *Runtime) IsClosed() bool {
	return r.closed.Load()
}

// CallContext derives the context for one call into a guest export,
// bounded by the configured execution timeout.
func (r *Runtime) CallContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.ExecutionTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.config.ExecutionTimeout)
}

// TimeoutErr converts the failure of a guest call made under
// CallContext(parent) into a TimeoutError when the call outlived its own
// deadline. A parent that is done already explains the failure, so the error
// is returned unchanged then, as are all other errors.
func (r *Runtime) TimeoutErr(parent context.Context, err error) error {
	if err == nil || parent.Err() != nil || r.config.ExecutionTimeout <= 0 {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Duration: r.config.ExecutionTimeout, Err: err}
	}
	return err
}

// GetCompiledModule returns the module cached under name.
func (r *Runtime) GetCompiledModule(name string) (*CompiledModule, bool) {
	val, ok := r.modules.Load(name)
	if !ok {
		return nil, false
	}
	return val.(*CompiledModule), true
}

// StoreCompiledModule caches module under its name, replacing any previous one.
func (r *Runtime) StoreCompiledModule(module *CompiledModule) {
	r.modules.Store(module.Name, module)
}

// StoreInstance tracks a live instance.
func (r *Runtime) StoreInstance(instance *Instance) {
	r.instances.Store(instance.ID, instance)
}

// DeleteInstance stops tracking an instance.
func (r *Runtime) DeleteInstance(instanceID string) {
	r.instances.Delete(instanceID)
}

// InstanceCount returns the number of live instances.
func (r *Runtime) InstanceCount() int {
	return countMap(&r.instances)
}

// Stats returns the current cache sizes.
func (r *Runtime) Stats() RuntimeStats {
	return RuntimeStats{
		Modules:   countMap(&r.modules),
		Instances: countMap(&r.instances),
	}
}

func countMap(m *sync.Map) int {
	n := 0
	m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
