package bridge

import (
	"context"
)

// Console receives the human-readable records produced by the bridge.
type Console interface {
	// Print emits one flushed block of guest output.
	Print(text string)
	// Log emits one bridge message, already prefixed with the bridge title.
	Log(message string)
}

// Executor runs a flushed snippet in execute mode.
type Executor interface {
	Execute(ctx context.Context, snippet string) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, snippet string) error

func (f ExecutorFunc) Execute(ctx context.Context, snippet string) error {
	return f(ctx, snippet)
}

// Recorder observes bridge activity. internal/metrics provides the
// prometheus implementation.
type Recorder interface {
	ObserveWrite(bytes int)
	ObserveMemoryNotReady()
	ObserveFlush(mode string)
	ObserveExecuteError()
}

type nopRecorder struct{}

func (nopRecorder) ObserveWrite(int)       {}
func (nopRecorder) ObserveMemoryNotReady() {}
func (nopRecorder) ObserveFlush(string)    {}
func (nopRecorder) ObserveExecuteError()   {}
