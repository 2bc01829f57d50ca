package wasm

import (
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/basewasm-host/internal/bridge"
)

// Loader exposes the instance's symbols to a bridge.
func (i *Instance) Loader() bridge.Loader {
	return &instanceLoader{inst: i}
}

type instanceLoader struct {
	inst *Instance
}

func (l *instanceLoader) Exports() map[string]bridge.Function {
	out := make(map[string]bridge.Function, len(l.inst.exports))
	for name, fn := range l.inst.exports {
		out[name] = fn
	}
	return out
}

// Imports binds each env function the guest imports to the host function
// behind it, called on behalf of this instance. Imports of other modules
// (WASI) are not callable by name and are skipped.
func (l *instanceLoader) Imports() map[string]bridge.Function {
	out := make(map[string]bridge.Function)
	for _, def := range l.inst.compiled.Module.ImportedFunctions() {
		moduleName, name, ok := def.Import()
		if !ok {
			continue
		}
		if moduleName != HostModuleName {
			l.inst.hostFuncs.logger.Debug("Import not bound",
				zap.String("module", moduleName),
				zap.String("function", name),
			)
			continue
		}
		if fn, ok := l.inst.hostFuncs.bind(name, l.inst.module); ok {
			out[name] = fn
		}
	}
	return out
}

func (l *instanceLoader) Memories() map[string]bridge.MemoryAccessor {
	mod := l.inst.module
	defs := mod.ExportedMemoryDefinitions()
	out := make(map[string]bridge.MemoryAccessor, len(defs))
	for name := range defs {
		out[name] = memoryAccessor(mod, name)
	}
	return out
}

func memoryAccessor(mod api.Module, name string) bridge.MemoryAccessor {
	return func() bridge.Memory {
		if mod.IsClosed() {
			return nil
		}
		mem := mod.ExportedMemory(name)
		if mem == nil {
			return nil
		}
		return mem
	}
}
