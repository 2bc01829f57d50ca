// Package wasmtest assembles small Wasm binaries for tests. It covers i32
// params and results, imports, one memory and active data segments.
package wasmtest

import abi "github.com/woxQAQ/basewasm-host/api/wasm"

const (
	valI32 = 0x7f

	opLocalGet = 0x20
	opI32Const = 0x41
	opCall     = 0x10
	opLoop     = 0x03
	opBr       = 0x0c
	opEnd      = 0x0b

	blockEmpty = 0x40

	exportFunc   = 0x00
	exportMemory = 0x02
)

// FuncType is a signature made of i32 values only.
type FuncType struct {
	Params  int
	Results int
}

// Import is a function imported from another module.
type Import struct {
	Module, Name string
	Type         int
}

// Func is a function defined by the module.
type Func struct {
	Type   int
	Export string // empty means not exported
	Body   []byte // instructions without the trailing end
}

// Data is an active data segment of memory 0.
type Data struct {
	Offset int32
	Bytes  []byte
}

// Module describes the binary to assemble.
type Module struct {
	Types       []FuncType
	Imports     []Import
	Funcs       []Func
	MemoryPages uint32 // 0 means no memory
	MemoryName  string // export name of the memory; empty means not exported
	Data        []Data
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func vec(items [][]byte) []byte {
	out := uleb(uint64(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint64(len(payload)))...)
	return append(out, payload...)
}

// I32 returns an i32.const instruction.
func I32(v int32) []byte { return append([]byte{opI32Const}, sleb(int64(v))...) }

// Call returns a call instruction for function index idx. Imports come
// first in the index space.
func Call(idx int) []byte { return append([]byte{opCall}, uleb(uint64(idx))...) }

// LocalGet returns a local.get instruction.
func LocalGet(idx int) []byte { return append([]byte{opLocalGet}, uleb(uint64(idx))...) }

// Spin returns an infinite loop. Only a closed module ends it.
func Spin() []byte { return []byte{opLoop, blockEmpty, opBr, 0x00, opEnd} }

// Instrs concatenates instructions.
func Instrs(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Encode assembles the binary.
func (m Module) Encode() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(m.Types) > 0 {
		var items [][]byte
		for _, t := range m.Types {
			ft := []byte{0x60}
			ft = append(ft, uleb(uint64(t.Params))...)
			for i := 0; i < t.Params; i++ {
				ft = append(ft, valI32)
			}
			ft = append(ft, uleb(uint64(t.Results))...)
			for i := 0; i < t.Results; i++ {
				ft = append(ft, valI32)
			}
			items = append(items, ft)
		}
		out = append(out, section(1, vec(items))...)
	}

	if len(m.Imports) > 0 {
		var items [][]byte
		for _, imp := range m.Imports {
			it := append(name(imp.Module), name(imp.Name)...)
			it = append(it, 0x00)
			it = append(it, uleb(uint64(imp.Type))...)
			items = append(items, it)
		}
		out = append(out, section(2, vec(items))...)
	}

	if len(m.Funcs) > 0 {
		var items [][]byte
		for _, f := range m.Funcs {
			items = append(items, uleb(uint64(f.Type)))
		}
		out = append(out, section(3, vec(items))...)
	}

	if m.MemoryPages > 0 {
		mem := append([]byte{0x00}, uleb(uint64(m.MemoryPages))...)
		out = append(out, section(5, vec([][]byte{mem}))...)
	}

	var exports [][]byte
	for i, f := range m.Funcs {
		if f.Export == "" {
			continue
		}
		ex := append(name(f.Export), exportFunc)
		ex = append(ex, uleb(uint64(len(m.Imports)+i))...)
		exports = append(exports, ex)
	}
	if m.MemoryPages > 0 && m.MemoryName != "" {
		exports = append(exports, append(name(m.MemoryName), exportMemory, 0x00))
	}
	if len(exports) > 0 {
		out = append(out, section(7, vec(exports))...)
	}

	if len(m.Funcs) > 0 {
		var items [][]byte
		for _, f := range m.Funcs {
			body := append([]byte{0x00}, f.Body...) // no locals
			body = append(body, opEnd)
			items = append(items, append(uleb(uint64(len(body))), body...))
		}
		out = append(out, section(10, vec(items))...)
	}

	if len(m.Data) > 0 {
		var items [][]byte
		for _, d := range m.Data {
			seg := []byte{0x00}
			seg = append(seg, I32(d.Offset)...)
			seg = append(seg, opEnd)
			seg = append(seg, uleb(uint64(len(d.Bytes)))...)
			seg = append(seg, d.Bytes...)
			items = append(items, seg)
		}
		out = append(out, section(11, vec(items))...)
	}

	return out
}

// Type indexes of Types.
const (
	TypePtrLen = 0 // (i32, i32) -> ()
	TypeVoid   = 1 // () -> ()
)

// Types is the type section shared by the guests below.
var Types = []FuncType{{Params: 2}, {}}

// Function indexes of the env imports in Imports.
const (
	ImportPrint             = 0
	ImportPrintFlush        = 1
	ImportPrintFlushExecute = 2
)

// Imports are the env externs a guest links against.
var Imports = []Import{
	{Module: abi.ModuleName, Name: abi.Print, Type: TypePtrLen},
	{Module: abi.ModuleName, Name: abi.PrintFlush, Type: TypeVoid},
	{Module: abi.ModuleName, Name: abi.PrintFlushExecute, Type: TypeVoid},
}

// PrintGuest builds a guest with text at address 0 and these exports:
//
//	Init()                   Print(0, len(text)); flush
//	Update()                 Print(0, 1)
//	onWindowResize(ptr, len) Print(ptr, len); printFlush
//
// flush is ImportPrintFlush or ImportPrintFlushExecute.
func PrintGuest(text string, flush int) []byte {
	return Module{
		Types:   Types,
		Imports: Imports,
		Funcs: []Func{
			{
				Type:   TypeVoid,
				Export: "Init",
				Body:   Instrs(I32(0), I32(int32(len(text))), Call(ImportPrint), Call(flush)),
			},
			{
				Type:   TypeVoid,
				Export: "Update",
				Body:   Instrs(I32(0), I32(1), Call(ImportPrint)),
			},
			{
				Type:   TypePtrLen,
				Export: "onWindowResize",
				Body:   Instrs(LocalGet(0), LocalGet(1), Call(ImportPrint), Call(ImportPrintFlush)),
			},
		},
		MemoryPages: 1,
		MemoryName:  "memory",
		Data:        []Data{{Offset: 0, Bytes: []byte(text)}},
	}.Encode()
}

// StartPrintGuest prints "hi" from its _start function.
func StartPrintGuest() []byte {
	return Module{
		Types:   Types,
		Imports: Imports[:2],
		Funcs: []Func{
			{Type: TypeVoid, Export: "_start", Body: Instrs(I32(0), I32(2), Call(ImportPrint))},
		},
		MemoryPages: 1,
		MemoryName:  "memory",
		Data:        []Data{{Offset: 0, Bytes: []byte("hi")}},
	}.Encode()
}

// SpinGuest has an empty Init and an Update that never returns.
func SpinGuest() []byte {
	return Module{
		Types: Types,
		Funcs: []Func{
			{Type: TypeVoid, Export: "Init"},
			{Type: TypeVoid, Export: "Update", Body: Spin()},
		},
	}.Encode()
}
