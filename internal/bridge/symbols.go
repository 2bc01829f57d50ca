package bridge

import (
	"context"
	"sort"
)

// Function is a callable symbol. api.Function from wazero satisfies it.
type Function interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// Memory is a readable view of guest linear memory. api.Memory from wazero
// satisfies it.
type Memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
}

// MemoryAccessor resolves the guest's current memory. It returns nil when the
// memory is not (or no longer) available.
type MemoryAccessor func() Memory

// Loader supplies the symbols of an instantiated guest.
type Loader interface {
	// Exports returns the functions exported by the guest.
	Exports() map[string]Function
	// Imports returns the functions the guest imports from the host.
	Imports() map[string]Function
	// Memories returns accessors for the guest's exported memories.
	Memories() map[string]MemoryAccessor
}

// SymbolTable is the bound namespace of a bridge.
type SymbolTable struct {
	Functions map[string]Function
	Memories  map[string]MemoryAccessor
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		Functions: make(map[string]Function),
		Memories:  make(map[string]MemoryAccessor),
	}
}

// Merge copies every symbol of other into t. A name already bound in t is
// overwritten.
func (t *SymbolTable) Merge(other *SymbolTable) {
	if other == nil {
		return
	}
	for name, fn := range other.Functions {
		delete(t.Memories, name)
		t.Functions[name] = fn
	}
	for name, mem := range other.Memories {
		delete(t.Functions, name)
		t.Memories[name] = mem
	}
}

// Function looks up a function symbol.
func (t *SymbolTable) Function(name string) (Function, bool) {
	fn, ok := t.Functions[name]
	return fn, ok && fn != nil
}

// Memory resolves a memory symbol. The accessor is called on every lookup.
func (t *SymbolTable) Memory(name string) Memory {
	accessor, ok := t.Memories[name]
	if !ok || accessor == nil {
		return nil
	}
	return accessor()
}

// Names returns all bound symbol names, sorted.
func (t *SymbolTable) Names() []string {
	names := make([]string, 0, len(t.Functions)+len(t.Memories))
	for name := range t.Functions {
		names = append(names, name)
	}
	for name := range t.Memories {
		if _, dup := t.Functions[name]; !dup {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// tableFromLoader builds a table from a loader. Exports are applied first,
// then imports, then memories, so that later groups win on conflicts.
func tableFromLoader(loader Loader) *SymbolTable {
	t := NewSymbolTable()
	for name, fn := range loader.Exports() {
		t.Functions[name] = fn
	}
	for name, fn := range loader.Imports() {
		t.Functions[name] = fn
	}
	for name, mem := range loader.Memories() {
		delete(t.Functions, name)
		t.Memories[name] = mem
	}
	return t
}
