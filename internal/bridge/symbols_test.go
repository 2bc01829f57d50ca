package bridge

import (
	"testing"
)

func TestSymbolTable_MergeUnion(t *testing.T) {
	a := &fakeFunction{}
	b := &fakeFunction{}

	table := NewSymbolTable()
	table.Merge(&SymbolTable{Functions: map[string]Function{"a": a}})
	table.Merge(&SymbolTable{Functions: map[string]Function{"b": b}})

	if got, ok := table.Function("a"); !ok || got != a {
		t.Errorf("Function(a) = %v, %v", got, ok)
	}
	if got, ok := table.Function("b"); !ok || got != b {
		t.Errorf("Function(b) = %v, %v", got, ok)
	}
}

func TestSymbolTable_MemoryReplacesFunction(t *testing.T) {
	table := NewSymbolTable()
	table.Merge(&SymbolTable{Functions: map[string]Function{"memory": &fakeFunction{}}})
	table.Merge(&SymbolTable{Memories: map[string]MemoryAccessor{
		"memory": func() Memory { return fakeMemory("x") },
	}})

	if _, ok := table.Function("memory"); ok {
		t.Error("function 'memory' should have been replaced by the memory symbol")
	}
	if table.Memory("memory") == nil {
		t.Error("memory symbol not bound")
	}
	if names := table.Names(); len(names) != 1 || names[0] != "memory" {
		t.Errorf("Names() = %v, want [memory]", names)
	}
}

func TestSymbolTable_MissingMemory(t *testing.T) {
	table := NewSymbolTable()
	if table.Memory("memory") != nil {
		t.Error("unbound memory should resolve to nil")
	}

	table.Memories["memory"] = func() Memory { return nil }
	if table.Memory("memory") != nil {
		t.Error("closed memory should resolve to nil")
	}
}

func TestSymbolTable_MergeNil(t *testing.T) {
	table := NewSymbolTable()
	table.Merge(nil)
	if len(table.Names()) != 0 {
		t.Errorf("expected empty table, got %v", table.Names())
	}
}
