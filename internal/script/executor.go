// Package script runs execute-mode snippets as Starlark. Every command
// registered on a command.Dispatcher is predeclared as a builtin, so
// `call("Update")` in a snippet runs the same handler as the JSON command
// {"cmd":"call","args":["Update"]}. Snippets have no file system, no load()
// and a bounded step budget.
package script

import (
	"context"
	"fmt"

	"github.com/woxQAQ/basewasm-host/internal/command"
	"go.starlark.net/starlark"
	"go.uber.org/zap"
)

// DefaultMaxSteps bounds a snippet when Options.MaxSteps is zero.
const DefaultMaxSteps = 100_000

// Options configures an Executor.
type Options struct {
	// Dispatcher supplies the builtins. Required.
	Dispatcher *command.Dispatcher
	// Print receives Starlark print() output. Nil logs it at info level.
	Print func(msg string)
	// MaxSteps bounds the computation of one snippet.
	MaxSteps uint64
}

// Executor implements bridge.Executor for Starlark snippets.
type Executor struct {
	dispatcher *command.Dispatcher
	print      func(msg string)
	maxSteps   uint64
	logger     *zap.Logger
}

// New creates a Starlark executor.
func New(opts Options, logger *zap.Logger) *Executor {
	e := &Executor{
		dispatcher: opts.Dispatcher,
		print:      opts.Print,
		maxSteps:   opts.MaxSteps,
		logger:     logger.With(zap.String("component", "script-executor")),
	}
	if e.maxSteps == 0 {
		e.maxSteps = DefaultMaxSteps
	}
	if e.print == nil {
		e.print = func(msg string) { e.logger.Info(msg) }
	}
	return e
}

// Execute runs snippet as a Starlark file.
func (e *Executor) Execute(ctx context.Context, snippet string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	thread := &starlark.Thread{
		Name:  "flush",
		Print: func(_ *starlark.Thread, msg string) { e.print(msg) },
		Load: func(_ *starlark.Thread, module string) (starlark.StringDict, error) {
			return nil, fmt.Errorf("load(%q) is not available to guest snippets", module)
		},
	}
	thread.SetMaxExecutionSteps(e.maxSteps)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	_, err := starlark.ExecFile(thread, "flush.star", snippet, e.predeclared(ctx))
	if err != nil {
		e.logger.Debug("Snippet failed",
			zap.Uint64("steps", thread.ExecutionSteps()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (e *Executor) predeclared(ctx context.Context) starlark.StringDict {
	builtins := make(starlark.StringDict)
	for _, name := range e.dispatcher.Names() {
		h, ok := e.dispatcher.Handler(name)
		if !ok {
			continue
		}
		builtins[name] = starlark.NewBuiltin(name, e.builtin(ctx, h))
	}
	return builtins
}

func (e *Executor) builtin(ctx context.Context, h command.Handler) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", fn.Name())
		}
		values := make([]any, len(args))
		for i, arg := range args {
			v, err := toGo(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: argument %d: %w", fn.Name(), i, err)
			}
			values[i] = v
		}
		if err := h(ctx, command.NewArgs(fn.Name(), values)); err != nil {
			return nil, fmt.Errorf("%s: %w", fn.Name(), err)
		}
		return starlark.None, nil
	}
}

func toGo(v starlark.Value) (any, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(x), nil
	case starlark.Bool:
		return bool(x), nil
	case starlark.Int:
		n, ok := x.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", x.String())
		}
		return n, nil
	case starlark.Float:
		return float64(x), nil
	default:
		return nil, fmt.Errorf("unsupported type %s", v.Type())
	}
}
