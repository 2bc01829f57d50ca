package wasm

import (
	"fmt"
	"time"
)

// CompilationError reports a guest binary wazero could not compile.
type CompilationError struct {
	ModuleName string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compile guest %q: %v", e.ModuleName, e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }

// InstantiationError reports a guest that failed to link or whose start
// functions trapped.
type InstantiationError struct {
	ModuleName string
	InstanceID string
	Err        error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("instantiate guest %q as %s: %v", e.ModuleName, e.InstanceID, e.Err)
}

func (e *InstantiationError) Unwrap() error { return e.Err }

// ModuleNotFoundError reports an instantiation of a module that was never
// compiled.
type ModuleNotFoundError struct {
	ModuleName string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("guest %q is not compiled", e.ModuleName)
}

// InstanceLimitError reports that MaxInstances guests are already live.
type InstanceLimitError struct {
	Limit int
}

func (e *InstanceLimitError) Error() string {
	return fmt.Sprintf("%d guest instances already running", e.Limit)
}

// MemoryAccessError reports a read or write outside guest linear memory.
type MemoryAccessError struct {
	Operation string
	Address   uint32
	Length    uint32
	Err       error
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("guest memory %s [%d, +%d): %v", e.Operation, e.Address, e.Length, e.Err)
}

func (e *MemoryAccessError) Unwrap() error { return e.Err }

// HostFunctionError reports a host module (env or WASI) that could not be
// instantiated.
type HostFunctionError struct {
	FunctionName string
	Err          error
}

func (e *HostFunctionError) Error() string {
	return fmt.Sprintf("host module %q: %v", e.FunctionName, e.Err)
}

func (e *HostFunctionError) Unwrap() error { return e.Err }

// TimeoutError reports a guest call that outlived the execution timeout.
// The instance is closed by the runtime when this happens.
type TimeoutError struct {
	Duration time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("guest call exceeded %v", e.Duration)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
