package host

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/basewasm-host/internal/bridge"
	"github.com/woxQAQ/basewasm-host/internal/guest"
)

// Size is a host surface size in cells or pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// RunOptions selects what Run drives.
type RunOptions struct {
	// App is the app name. Empty picks the only loaded app.
	App string
	// Frames stops the loop after that many ticks; 0 runs until ctx is done.
	Frames int
}

// Run instantiates the app, initializes it and drives its frame loop on the
// calling goroutine. Every call into the guest happens on that goroutine.
func (h *Host) Run(ctx context.Context, opts RunOptions) error {
	app, err := h.resolveApp(opts.App)
	if err != nil {
		return err
	}

	if h.cfg.MetricsEnabled {
		go func() {
			if err := h.metrics.Serve(ctx, h.cfg.MetricsPort, h.logger); err != nil {
				h.logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	s := &session{console: h.console}
	s.bridge = bridge.New(bridge.Options{
		Title:    app.Title(),
		Console:  h.console,
		Executor: h.executor(app, s.dispatcher(h.logger)),
		Names:    app.BridgeNames(),
		Recorder: h.metrics,
		Logger:   h.logger,
	})

	inst, err := h.manager.Instantiate(ctx, app.Name(), guest.InstanceOptions{
		Bridge: s.bridge,
		Stdout: h.stdout,
		Stderr: h.stderr,
	})
	if err != nil {
		return err
	}
	h.metrics.InstanceStarted()
	defer func() {
		if err := inst.Close(context.Background()); err != nil {
			h.logger.Warn("Failed to close instance", zap.String("instance_id", inst.ID), zap.Error(err))
		}
		h.metrics.InstanceStopped()
	}()

	logger := h.logger.With(zap.String("app", app.Name()), zap.String("instance_id", inst.ID))
	logger.Info("Running app", zap.Int("frames", opts.Frames))

	if err := h.guestCall(ctx, func(ctx context.Context) error {
		return s.bridge.Init(ctx, inst.Loader())
	}); err != nil {
		if ctx.Err() != nil {
			logger.Info("Run cancelled during init")
			return nil
		}
		return fmt.Errorf("init %s: %w", app.Name(), err)
	}

	resizes := h.resizes
	if resizes == nil {
		resizes = watchTerminal(ctx, logger)
	}

	ticker := time.NewTicker(h.cfg.Bridge.TickInterval)
	defer ticker.Stop()

	frames := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info("Run cancelled", zap.Int("frames", frames))
			return nil

		case size, ok := <-resizes:
			if !ok {
				resizes = nil
				continue
			}
			logger.Debug("Resize", zap.Uint32("width", size.Width), zap.Uint32("height", size.Height))
			if err := h.guestCall(ctx, func(ctx context.Context) error {
				return s.bridge.Resize(ctx, size.Width, size.Height)
			}); err != nil {
				if ctx.Err() != nil {
					logger.Info("Run cancelled", zap.Int("frames", frames))
					return nil
				}
				return fmt.Errorf("resize %s: %w", app.Name(), err)
			}

		case <-ticker.C:
			if err := h.guestCall(ctx, s.bridge.Update); err != nil {
				if ctx.Err() != nil {
					logger.Info("Run cancelled", zap.Int("frames", frames))
					return nil
				}
				return fmt.Errorf("update %s (frame %d): %w", app.Name(), frames, err)
			}
			frames++
			if opts.Frames > 0 && frames >= opts.Frames {
				logger.Info("Frame limit reached", zap.Int("frames", frames))
				return nil
			}
		}
	}
}

// guestCall runs fn under the per-call execution timeout. A failure is a
// TimeoutError only when the call's own deadline fired while ctx was live.
func (h *Host) guestCall(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := h.runtime.CallContext(ctx)
	defer cancel()
	return h.runtime.TimeoutErr(ctx, fn(callCtx))
}
