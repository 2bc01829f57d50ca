package wasm

import (
	"errors"

	"github.com/tetratelabs/wazero/api"
)

var errOutOfRange = errors.New("out of range")

// Memory reads NUL-terminated strings from a guest's linear memory.
//
// Reads are clamped to the current memory size, which can grow between
// calls.
type Memory struct {
	mem api.Memory
}

// NewMemory creates a memory helper for the module's first memory.
func NewMemory(module api.Module) *Memory {
	return &Memory{mem: module.Memory()}
}

// ReadString reads a NUL-terminated string of at most maxLen bytes.
// A string running into the end of memory is returned as is.
func (m *Memory) ReadString(ptr uint32, maxLen uint32) (string, error) {
	size := m.mem.Size()
	if ptr >= size {
		return "", &MemoryAccessError{Operation: "read_string", Address: ptr, Length: maxLen, Err: errOutOfRange}
	}
	if remaining := size - ptr; maxLen > remaining {
		maxLen = remaining
	}

	buf, ok := m.mem.Read(ptr, maxLen)
	if !ok {
		return "", &MemoryAccessError{Operation: "read_string", Address: ptr, Length: maxLen, Err: errOutOfRange}
	}

	end := len(buf)
	for i, b := range buf {
		if b == 0 {
			end = i
			break
		}
	}
	return string(buf[:end]), nil
}
