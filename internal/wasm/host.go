package wasm

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/emscripten"
	"go.uber.org/zap"

	abi "github.com/woxQAQ/basewasm-host/api/wasm"
	"github.com/woxQAQ/basewasm-host/internal/bridge"
)

// HostModuleName is the import module every guest links its externs against.
const HostModuleName = abi.ModuleName

// Names of the host functions exported to guests.
const (
	FuncPrint             = abi.Print
	FuncPrintFlush        = abi.PrintFlush
	FuncPrintFlushExecute = abi.PrintFlushExecute
	FuncShaderCompiled    = abi.ShaderCompiled
)

// emscriptenMemoryGrowth is the env helper exported by emscripten.NewFunctionExporter.
const emscriptenMemoryGrowth = "emscripten_notify_memory_growth"

// hostFunctionNames are the env imports a guest may link against.
var hostFunctionNames = map[string]struct{}{
	FuncPrint:              {},
	FuncPrintFlush:         {},
	FuncPrintFlushExecute:  {},
	FuncShaderCompiled:     {},
	emscriptenMemoryGrowth: {},
}

// maxShaderMessage bounds the NUL-terminated shader log read from the guest.
const maxShaderMessage = 1024

// HostFunctionsImpl implements host functions for Wasm modules.
// Calls are routed to the bridge registered under the calling module's name.
type HostFunctionsImpl struct {
	logger  *zap.Logger
	bridges sync.Map // instance ID -> *bridge.Bridge
}

// NewHostFunctions creates a new host functions implementation.
func NewHostFunctions(logger *zap.Logger) *HostFunctionsImpl {
	return &HostFunctionsImpl{
		logger: logger.With(zap.String("component", "wasm-host")),
	}
}

// Register routes calls from the module named instanceID to b.
func (h *HostFunctionsImpl) Register(instanceID string, b *bridge.Bridge) {
	h.bridges.Store(instanceID, b)
}

// Unregister stops routing calls from instanceID.
func (h *HostFunctionsImpl) Unregister(instanceID string) {
	h.bridges.Delete(instanceID)
}

func (h *HostFunctionsImpl) lookup(mod api.Module, fn string) (*bridge.Bridge, bool) {
	if val, ok := h.bridges.Load(mod.Name()); ok {
		return val.(*bridge.Bridge), true
	}
	h.logger.Warn("Host call from unregistered module dropped",
		zap.String("module", mod.Name()),
		zap.String("function", fn),
	)
	return nil, false
}

// print appends guest text to the bridge buffer.
// Signature: Print(ptr, length)
func (h *HostFunctionsImpl) print(ctx context.Context, mod api.Module, ptr uint32, length uint32) {
	if b, ok := h.lookup(mod, FuncPrint); ok {
		b.Write(ctx, ptr, length)
	}
}

// printFlush sends the buffer to the console.
func (h *HostFunctionsImpl) printFlush(ctx context.Context, mod api.Module) {
	if b, ok := h.lookup(mod, FuncPrintFlush); ok {
		b.Flush(ctx, bridge.FlushLog)
	}
}

// printFlushExecute runs the buffer as a snippet.
func (h *HostFunctionsImpl) printFlushExecute(ctx context.Context, mod api.Module) {
	if b, ok := h.lookup(mod, FuncPrintFlushExecute); ok {
		b.Flush(ctx, bridge.FlushExecute)
	}
}

// onShaderCompiled is a notification only. message, when non-zero, points at
// a NUL-terminated compile log.
func (h *HostFunctionsImpl) onShaderCompiled(ctx context.Context, mod api.Module, handle, status, message uint32) {
	b, ok := h.lookup(mod, FuncShaderCompiled)
	if !ok {
		return
	}
	if message != 0 && mod.Memory() != nil {
		if text, err := NewMemory(mod).ReadString(message, maxShaderMessage); err == nil && text != "" {
			h.logger.Debug("Shader compile log",
				zap.String("module", mod.Name()),
				zap.Uint32("handle", handle),
				zap.String("log", text),
			)
		}
	}
	b.ShaderCompiled(ctx, handle, status, message)
}

// hostImport is an env function bound to the guest module that imports it,
// so the bridge can call it like any other symbol.
type hostImport struct {
	name   string
	arity  int
	mod    api.Module
	invoke func(ctx context.Context, mod api.Module, params []uint64)
}

func (f *hostImport) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	if len(params) != f.arity {
		return nil, fmt.Errorf("%s takes %d params, got %d", f.name, f.arity, len(params))
	}
	for i, p := range params {
		if !bridge.FitsI32(p) {
			return nil, fmt.Errorf("%s param %d: %d does not fit in i32", f.name, i, int64(p))
		}
	}
	f.invoke(ctx, f.mod, params)
	return nil, nil
}

// bind returns the env function name called as mod. Names the bridge has no
// use for, such as the Emscripten helpers, are not bound.
func (h *HostFunctionsImpl) bind(name string, mod api.Module) (bridge.Function, bool) {
	fn := &hostImport{name: name, mod: mod}
	switch name {
	case FuncPrint:
		fn.arity = 2
		fn.invoke = func(ctx context.Context, mod api.Module, p []uint64) {
			h.print(ctx, mod, uint32(p[0]), uint32(p[1]))
		}
	case FuncPrintFlush:
		fn.invoke = func(ctx context.Context, mod api.Module, _ []uint64) { h.printFlush(ctx, mod) }
	case FuncPrintFlushExecute:
		fn.invoke = func(ctx context.Context, mod api.Module, _ []uint64) { h.printFlushExecute(ctx, mod) }
	case FuncShaderCompiled:
		fn.arity = 3
		fn.invoke = func(ctx context.Context, mod api.Module, p []uint64) {
			h.onShaderCompiled(ctx, mod, uint32(p[0]), uint32(p[1]), uint32(p[2]))
		}
	default:
		return nil, false
	}
	return fn, true
}

// exportHostFunctions registers Go functions for import by Wasm modules.
func (h *HostFunctionsImpl) exportHostFunctions(builder wazero.HostModuleBuilder) {
	// Emscripten's own env helper for memory growth notification.
	emscripten.NewFunctionExporter().ExportFunctions(builder)

	builder.NewFunctionBuilder().
		WithFunc(h.print).
		WithParameterNames("ptr", "length").
		Export(FuncPrint)

	builder.NewFunctionBuilder().
		WithFunc(h.printFlush).
		Export(FuncPrintFlush)

	builder.NewFunctionBuilder().
		WithFunc(h.printFlushExecute).
		Export(FuncPrintFlushExecute)

	builder.NewFunctionBuilder().
		WithFunc(h.onShaderCompiled).
		WithParameterNames("handle", "status", "message").
		Export(FuncShaderCompiled)
}

// instantiateHostModule builds and instantiates the "env" module once per
// runtime.
func (h *HostFunctionsImpl) instantiateHostModule(ctx context.Context, r wazero.Runtime) error {
	builder := r.NewHostModuleBuilder(HostModuleName)
	h.exportHostFunctions(builder)
	if _, err := builder.Instantiate(ctx); err != nil {
		return &HostFunctionError{FunctionName: HostModuleName, Err: err}
	}
	h.logger.Debug("Host module instantiated", zap.String("module", HostModuleName))
	return nil
}
