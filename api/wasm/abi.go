// Package wasm describes the ABI between the host and its guests: the
// externs the host provides in the "env" module and the exports it calls.
//
// Guests built with GOOS=wasip1 GOARCH=wasm can use the helpers in this
// package directly; other toolchains link against the same names.
//
// NOTE: uint32 is used for pointers and lengths because WebAssembly uses a
// 32-bit linear memory model.
package wasm

// ModuleName is the import module of every host extern.
const ModuleName = "env"

// Host externs, imported by guests from ModuleName.
const (
	// Print(ptr, length uint32) appends UTF-8 text to the host buffer.
	Print = "Print"
	// PrintFlush() sends the buffer to the console.
	PrintFlush = "printFlush"
	// PrintFlushExecute() runs the buffer as a host command snippet.
	PrintFlushExecute = "printFlushExecute"
	// ShaderCompiled(handle, status, message uint32) reports a shader build;
	// message points at a NUL-terminated log or is 0.
	ShaderCompiled = "onShaderCompiled"
)

// Guest exports the host calls when present.
const (
	// ExportEntry() runs once after the host attached the guest.
	ExportEntry = "Init"
	// ExportUpdate() runs on every host frame.
	ExportUpdate = "Update"
	// ExportResize() or ExportResize(width, height uint32) follows host
	// size changes.
	ExportResize = "onWindowResize"
	// ExportMemory is the linear memory the host reads text from.
	ExportMemory = "memory"
)
