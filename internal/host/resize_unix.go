//go:build unix

package host

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// watchTerminal reports the stdout terminal size now and on every SIGWINCH.
// The channel stays silent when stdout is not a terminal.
func watchTerminal(ctx context.Context, logger *zap.Logger) <-chan Size {
	out := make(chan Size, 1)
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return out
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGWINCH)

	go func() {
		defer signal.Stop(sig)
		report(ctx, fd, out, logger)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				report(ctx, fd, out, logger)
			}
		}
	}()
	return out
}
