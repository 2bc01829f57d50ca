package host

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// report sends the current size of fd, replacing a pending one the loop has
// not picked up yet.
func report(ctx context.Context, fd int, out chan Size, logger *zap.Logger) {
	width, height, err := term.GetSize(fd)
	if err != nil {
		logger.Debug("Terminal size unavailable", zap.Error(err))
		return
	}
	size := Size{Width: uint32(width), Height: uint32(height)}
	select {
	case <-out:
	default:
	}
	select {
	case out <- size:
	case <-ctx.Done():
	}
}
