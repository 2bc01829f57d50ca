package host

import (
	"context"

	"go.uber.org/zap"

	"github.com/woxQAQ/basewasm-host/internal/bridge"
	"github.com/woxQAQ/basewasm-host/internal/command"
	"github.com/woxQAQ/basewasm-host/internal/guest"
	"github.com/woxQAQ/basewasm-host/internal/script"
	"github.com/woxQAQ/basewasm-host/pkg/protocol"
)

// session is one running guest and the commands its snippets may issue.
type session struct {
	bridge  *bridge.Bridge
	console bridge.Console
}

func (s *session) log(ctx context.Context, args command.Args) error {
	s.bridge.Log(args.Join())
	return nil
}

func (s *session) print(ctx context.Context, args command.Args) error {
	s.console.Print(args.Join())
	return nil
}

// call invokes a bound guest symbol: call(name, params...).
func (s *session) call(ctx context.Context, args command.Args) error {
	name, err := args.String(0)
	if err != nil {
		return err
	}
	params, err := args.Uint64s(1)
	if err != nil {
		return err
	}
	_, err = s.bridge.Call(ctx, name, params...)
	return err
}

// resize forwards a size to the guest: resize(width, height).
func (s *session) resize(ctx context.Context, args command.Args) error {
	width, err := args.Uint32(0)
	if err != nil {
		return err
	}
	height, err := args.Uint32(1)
	if err != nil {
		return err
	}
	return s.bridge.Resize(ctx, width, height)
}

func (s *session) dispatcher(logger *zap.Logger) *command.Dispatcher {
	d := command.NewDispatcher(logger)
	d.Register(protocol.CommandLog, s.log)
	d.Register(protocol.CommandPrint, s.print)
	d.Register(protocol.CommandCall, s.call)
	d.Register(protocol.CommandResize, s.resize)
	return d
}

// executor picks the execute-mode backend of an app.
func (h *Host) executor(app *guest.App, d *command.Dispatcher) bridge.Executor {
	switch app.ExecuteMode() {
	case guest.ExecuteScript:
		return script.New(script.Options{
			Dispatcher: d,
			Print:      h.console.Print,
			MaxSteps:   h.cfg.Bridge.ScriptMaxSteps,
		}, h.logger)
	case guest.ExecuteDisabled:
		return nil
	default:
		return d
	}
}
