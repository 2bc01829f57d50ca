// Package bridge implements the text bridge between a guest wasm module and
// its host: guest output is written into a host-side buffer from linear
// memory, decoded as UTF-8, and flushed either as a console record or, in
// execute mode, handed to an Executor.
//
// A Bridge is not safe for concurrent use. The host drives it from a single
// goroutine and guest calls arrive synchronously on that goroutine.
package bridge

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	abi "github.com/woxQAQ/basewasm-host/api/wasm"
)

const (
	// MemoryNotReady is appended instead of guest text when no memory is bound.
	MemoryNotReady = "<memory not ready>"
	// MemoryOutOfRange is appended when (ptr, len) falls outside guest memory.
	MemoryOutOfRange = "<memory out of range>"
)

// State is the lifecycle stage of a Bridge.
type State int

const (
	StateUninitialized State = iota
	StateAttached
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAttached:
		return "attached"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FlushMode selects what Flush does with the buffered text.
type FlushMode int

const (
	FlushLog FlushMode = iota
	FlushExecute
)

func (m FlushMode) String() string {
	if m == FlushExecute {
		return "execute"
	}
	return "log"
}

// Names are the guest symbols the bridge looks up.
type Names struct {
	Entry  string
	Update string
	Resize string
	Memory string
}

// DefaultNames matches the exports of the BaseWasm guest templates.
func DefaultNames() Names {
	return Names{
		Entry:  abi.ExportEntry,
		Update: abi.ExportUpdate,
		Resize: abi.ExportResize,
		Memory: abi.ExportMemory,
	}
}

// Options configures a Bridge.
type Options struct {
	// Title prefixes every Log record.
	Title string
	// Console receives Print and Log records. Required.
	Console Console
	// Executor runs execute-mode flushes. Nil disables execute mode.
	Executor Executor
	// Main is called at the end of Init when set.
	Main func(ctx context.Context, b *Bridge) error
	// Names overrides DefaultNames; empty fields keep their default.
	Names Names
	// Recorder observes activity. Nil means no metrics.
	Recorder Recorder
	// Logger receives diagnostics. Nil means zap.NewNop.
	Logger *zap.Logger
}

// Bridge buffers guest text and dispatches it on flush.
type Bridge struct {
	title    string
	console  Console
	executor Executor
	main     func(ctx context.Context, b *Bridge) error
	names    Names
	recorder Recorder
	logger   *zap.Logger

	state   State
	buffer  strings.Builder
	decoder Decoder
	symbols *SymbolTable
}

// New constructs a Bridge in StateUninitialized.
func New(opts Options) *Bridge {
	names := DefaultNames()
	if opts.Names.Entry != "" {
		names.Entry = opts.Names.Entry
	}
	if opts.Names.Update != "" {
		names.Update = opts.Names.Update
	}
	if opts.Names.Resize != "" {
		names.Resize = opts.Names.Resize
	}
	if opts.Names.Memory != "" {
		names.Memory = opts.Names.Memory
	}

	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bridge{
		title:    opts.Title,
		console:  opts.Console,
		executor: opts.Executor,
		main:     opts.Main,
		names:    names,
		recorder: recorder,
		logger:   logger.With(zap.String("component", "bridge"), zap.String("title", opts.Title)),
		symbols:  NewSymbolTable(),
	}
	b.Log("Constructed")
	return b
}

// State returns the current lifecycle stage.
func (b *Bridge) State() State {
	return b.state
}

// Buffered returns the text written since the last flush.
func (b *Bridge) Buffered() string {
	return b.buffer.String()
}

// Symbols returns the bound symbol table.
func (b *Bridge) Symbols() *SymbolTable {
	return b.symbols
}

// Log emits a console record prefixed with the bridge title.
func (b *Bridge) Log(message string) {
	if b.title != "" {
		message = b.title + " : " + message
	}
	b.console.Log(message)
}

// Write appends length bytes at ptr of the guest memory to the buffer.
// The memory is resolved again on every call because the guest may grow
// (and so replace) it between calls.
func (b *Bridge) Write(ctx context.Context, ptr, length uint32) {
	mem := b.memory()
	if mem == nil || b.decoder == nil {
		b.recorder.ObserveMemoryNotReady()
		b.logger.Debug("Write before memory is ready",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
			zap.Stringer("state", b.state),
		)
		b.buffer.WriteString(MemoryNotReady)
		return
	}

	raw, ok := mem.Read(ptr, length)
	if !ok {
		b.logger.Warn("Write outside guest memory",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
		)
		b.buffer.WriteString(MemoryOutOfRange)
		return
	}

	b.buffer.WriteString(b.decoder.Decode(raw))
	b.recorder.ObserveWrite(len(raw))
}

// Flush clears the buffer and dispatches its text. Failures are logged and
// never returned to the guest. Text the guest writes while an execute-mode
// snippet runs starts the next buffer.
func (b *Bridge) Flush(ctx context.Context, mode FlushMode) {
	text := b.buffer.String()
	b.buffer.Reset()

	b.recorder.ObserveFlush(mode.String())

	switch mode {
	case FlushExecute:
		b.execute(ctx, text)
	default:
		b.console.Print(text)
	}
}

func (b *Bridge) execute(ctx context.Context, snippet string) {
	if b.executor == nil {
		b.logger.Warn("Execute mode disabled, snippet discarded",
			zap.String("snippet", snippet),
		)
		return
	}

	if err := b.runExecutor(ctx, snippet); err != nil {
		b.recorder.ObserveExecuteError()
		b.logger.Error("Execute-mode flush failed",
			zap.String("snippet", snippet),
			zap.Error(err),
		)
	}
}

func (b *Bridge) runExecutor(ctx context.Context, snippet string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{Snippet: snippet, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if execErr := b.executor.Execute(ctx, snippet); execErr != nil {
		return &ExecutionError{Snippet: snippet, Err: execErr}
	}
	return nil
}

// Attach binds every export, import and memory the loader exposes. Names
// already bound are overwritten.
func (b *Bridge) Attach(loader Loader) {
	if loader == nil {
		return
	}
	b.symbols.Merge(tableFromLoader(loader))
	if b.state == StateUninitialized {
		b.state = StateAttached
	}
	b.logger.Debug("Attached guest symbols", zap.Strings("symbols", b.symbols.Names()))
	b.Log("Loaded module with exports and imports")
}

// Init resets the buffer, attaches the loader and runs the guest entry point
// and the optional host main. Absent hooks are skipped.
func (b *Bridge) Init(ctx context.Context, loader Loader) error {
	b.buffer.Reset()
	b.decoder = NewUTF8Decoder()
	b.Attach(loader)
	b.state = StateReady

	if _, err := b.callOptional(ctx, b.names.Entry); err != nil {
		b.logger.Error("Guest entry point failed", zap.Error(err))
		return err
	}

	b.Log("Initialized")

	if b.main != nil {
		if err := b.main(ctx, b); err != nil {
			b.logger.Error("Host main failed", zap.Error(err))
			return fmt.Errorf("host main: %w", err)
		}
	}
	return nil
}

// Update forwards one tick to the guest.
func (b *Bridge) Update(ctx context.Context) error {
	called, err := b.callOptional(ctx, b.names.Update)
	if called {
		b.logger.Debug("Update")
	}
	return err
}

// Resize forwards a host resize to the guest. The size is passed only when
// the guest handler declares two parameters.
func (b *Bridge) Resize(ctx context.Context, width, height uint32) error {
	fn, ok := b.symbols.Function(b.names.Resize)
	if !ok {
		return nil
	}
	var params []uint64
	if d, ok := fn.(interface{ Definition() api.FunctionDefinition }); ok && len(d.Definition().ParamTypes()) == 2 {
		params = []uint64{uint64(width), uint64(height)}
	}
	if _, err := fn.Call(ctx, params...); err != nil {
		return &GuestCallError{Name: b.names.Resize, Err: err}
	}
	return nil
}

// ShaderCompiled records a guest shader notification.
func (b *Bridge) ShaderCompiled(ctx context.Context, handle, status, message uint32) {
	b.logger.Debug("Shader compiled",
		zap.Uint32("handle", handle),
		zap.Uint32("status", status),
		zap.Uint32("message", message),
	)
	b.Log("Shader compiled.")
}

// Call invokes a bound function by name.
func (b *Bridge) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn, ok := b.symbols.Function(name)
	if !ok {
		return nil, &FunctionNotBoundError{Name: name}
	}
	if err := checkParams(fn, params); err != nil {
		return nil, &GuestCallError{Name: name, Err: err}
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, &GuestCallError{Name: name, Err: err}
	}
	return results, nil
}

// checkParams rejects values that an i32 parameter of fn would truncate.
// Negative values in two's complement fit.
func checkParams(fn Function, params []uint64) error {
	d, ok := fn.(interface{ Definition() api.FunctionDefinition })
	if !ok {
		return nil
	}
	for i, t := range d.Definition().ParamTypes() {
		if i >= len(params) {
			break
		}
		if t == api.ValueTypeI32 && !FitsI32(params[i]) {
			return fmt.Errorf("param %d: %d does not fit in i32", i, int64(params[i]))
		}
	}
	return nil
}

// FitsI32 reports whether v is a uint32 or a sign-extended int32.
func FitsI32(v uint64) bool {
	return v <= math.MaxUint32 || int64(v) >= math.MinInt32
}

func (b *Bridge) callOptional(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	if _, ok := b.symbols.Function(name); !ok {
		return false, nil
	}
	_, err := b.Call(ctx, name)
	return true, err
}

func (b *Bridge) memory() Memory {
	if b.state != StateReady {
		return nil
	}
	return b.symbols.Memory(b.names.Memory)
}
