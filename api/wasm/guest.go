//go:build wasm

package wasm

import (
	"unsafe"

	"github.com/woxQAQ/basewasm-host/pkg/protocol"
)

//go:wasmimport env Print
func hostPrint(ptr, length uint32)

//go:wasmimport env printFlush
func hostPrintFlush()

//go:wasmimport env printFlushExecute
func hostPrintFlushExecute()

// Write appends s to the host buffer without flushing.
func Write(s string) {
	if s == "" {
		return
	}
	hostPrint(uint32(uintptr(unsafe.Pointer(unsafe.StringData(s)))), uint32(len(s)))
}

// Flush sends the buffered text to the host console.
func Flush() {
	hostPrintFlush()
}

// Println writes s and flushes it as one console record.
func Println(s string) {
	Write(s)
	hostPrintFlush()
}

// Execute writes snippet and has the host run it.
func Execute(snippet string) {
	Write(snippet)
	hostPrintFlushExecute()
}

// Send encodes cmds and has the host run them in order.
func Send(cmds ...protocol.Command) error {
	data, err := protocol.Encode(cmds...)
	if err != nil {
		return err
	}
	Execute(string(data))
	return nil
}
