//go:build !unix

package host

import (
	"context"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// watchTerminal reports the stdout terminal size once. There is no resize
// signal to follow on this platform.
func watchTerminal(ctx context.Context, logger *zap.Logger) <-chan Size {
	out := make(chan Size, 1)
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		report(ctx, fd, out, logger)
	}
	return out
}
