// Package command implements the structured execute-mode protocol: a flushed
// snippet is decoded into tagged commands (see pkg/protocol) and each one is
// dispatched to a registered host handler.
package command

import (
	"context"
	"sort"
	"sync"

	"github.com/woxQAQ/basewasm-host/pkg/protocol"
	"go.uber.org/zap"
)

// Handler runs one command.
type Handler func(ctx context.Context, args Args) error

// Dispatcher maps command names to handlers. It implements bridge.Executor.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *zap.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logger.With(zap.String("component", "command-dispatcher")),
	}
}

// Register binds a handler to a command name, replacing any previous one.
func (d *Dispatcher) Register(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

// Handler returns the handler registered for name.
func (d *Dispatcher) Handler(name string) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[name]
	return h, ok
}

// Names returns the registered command names, sorted.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute decodes snippet and runs its commands in order, stopping at the
// first failure.
func (d *Dispatcher) Execute(ctx context.Context, snippet string) error {
	cmds, err := protocol.Decode([]byte(snippet))
	if err != nil {
		return &MalformedCommandError{Snippet: snippet, Err: err}
	}

	for i, cmd := range cmds {
		if err := d.Dispatch(ctx, cmd); err != nil {
			return &CommandError{Name: cmd.Name, Index: i, Err: err}
		}
	}
	return nil
}

// Dispatch runs a single command.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd protocol.Command) error {
	h, ok := d.Handler(cmd.Name)
	if !ok {
		return &UnknownCommandError{Name: cmd.Name}
	}

	d.logger.Debug("Dispatching command",
		zap.String("cmd", cmd.Name),
		zap.Int("args", len(cmd.Args)),
	)
	return h(ctx, NewArgs(cmd.Name, cmd.Args))
}
