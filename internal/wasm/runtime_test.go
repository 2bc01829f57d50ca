package wasm

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newRuntime(t *testing.T, config *RuntimeConfig) *Runtime {
	t.Helper()
	runtime, err := NewRuntime(context.Background(), zaptest.NewLogger(t), config)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	t.Cleanup(func() { runtime.Close(context.Background()) })
	return runtime
}

func TestRuntimeLifecycle(t *testing.T) {
	ctx := context.Background()
	runtime := newRuntime(t, nil)

	if runtime.IsClosed() {
		t.Fatal("Fresh runtime reports closed")
	}
	if err := runtime.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !runtime.IsClosed() {
		t.Error("Runtime should report closed after Close")
	}
	if err := runtime.Close(ctx); err != nil {
		t.Errorf("Second Close: %v", err)
	}
}

func TestRuntimeCloseWithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runtime, err := NewRuntime(ctx, zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	if err := runtime.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Close: %v", err)
	}
}

func TestDefaultRuntimeConfig(t *testing.T) {
	config := DefaultRuntimeConfig()

	if config.MemoryPages != 256 {
		t.Errorf("MemoryPages = %d, want 256", config.MemoryPages)
	}
	if config.DebugEnabled || config.CacheDir != "" {
		t.Errorf("Debug and cache dir should be off: %+v", config)
	}
	if config.MaxInstances != 16 {
		t.Errorf("MaxInstances = %d, want 16", config.MaxInstances)
	}
	if config.ExecutionTimeout != 5*time.Second {
		t.Errorf("ExecutionTimeout = %v, want 5s", config.ExecutionTimeout)
	}
}

func TestRuntimeWithCacheDirAndDebug(t *testing.T) {
	runtime := newRuntime(t, &RuntimeConfig{
		MemoryPages:  128,
		DebugEnabled: true,
		CacheDir:     t.TempDir(),
		MaxInstances: 2,
	})

	if runtime.config.MemoryPages != 128 || runtime.config.MaxInstances != 2 {
		t.Errorf("config not kept: %+v", runtime.config)
	}
}

func TestRuntimeModuleCacheAndStats(t *testing.T) {
	runtime := newRuntime(t, nil)

	if got := runtime.Stats(); got != (RuntimeStats{}) {
		t.Errorf("Stats = %+v, want zero", got)
	}

	runtime.StoreCompiledModule(&CompiledModule{Name: "demo", Digest: "abc"})
	runtime.StoreCompiledModule(&CompiledModule{Name: "demo", Digest: "def"})

	got, ok := runtime.GetCompiledModule("demo")
	if !ok {
		t.Fatal("demo not cached")
	}
	if got.Digest != "def" {
		t.Errorf("Digest = %s, want the replacement def", got.Digest)
	}
	if _, ok := runtime.GetCompiledModule("other"); ok {
		t.Error("other should not be cached")
	}
	if got := runtime.Stats(); got.Modules != 1 || got.Instances != 0 {
		t.Errorf("Stats = %+v, want 1 module", got)
	}
}

func TestRuntimeCallContext(t *testing.T) {
	tests := []struct {
		name        string
		timeout     time.Duration
		hasDeadline bool
	}{
		{"bounded", time.Minute, true},
		{"unbounded", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runtime := newRuntime(t, &RuntimeConfig{ExecutionTimeout: tt.timeout})

			callCtx, cancel := runtime.CallContext(context.Background())
			defer cancel()
			if _, ok := callCtx.Deadline(); ok != tt.hasDeadline {
				t.Errorf("deadline set = %v, want %v", ok, tt.hasDeadline)
			}
		})
	}
}

func TestRuntimeTimeoutErr(t *testing.T) {
	runtime := newRuntime(t, &RuntimeConfig{ExecutionTimeout: time.Minute})
	ctx := context.Background()

	var te *TimeoutError
	if err := runtime.TimeoutErr(ctx, context.DeadlineExceeded); !errors.As(err, &te) {
		t.Fatalf("TimeoutErr(DeadlineExceeded) = %T, want *TimeoutError", err)
	}
	if te.Duration != time.Minute {
		t.Errorf("Duration = %v, want 1m", te.Duration)
	}
	if !errors.Is(te, context.DeadlineExceeded) {
		t.Error("TimeoutError should unwrap to DeadlineExceeded")
	}

	trap := errors.New("unreachable")
	if got := runtime.TimeoutErr(ctx, trap); got != trap {
		t.Errorf("TimeoutErr should pass other errors through, got %v", got)
	}
	if runtime.TimeoutErr(ctx, nil) != nil {
		t.Error("TimeoutErr(nil) should be nil")
	}
}

func TestRuntimeTimeoutErrParentDone(t *testing.T) {
	runtime := newRuntime(t, &RuntimeConfig{ExecutionTimeout: time.Minute})

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := runtime.TimeoutErr(expired, context.DeadlineExceeded)
	var te *TimeoutError
	if errors.As(err, &te) {
		t.Errorf("parent deadline reported as guest timeout: %v", err)
	}
}

func TestRuntimeTimeoutErrWithoutTimeout(t *testing.T) {
	runtime := newRuntime(t, &RuntimeConfig{})

	var te *TimeoutError
	if err := runtime.TimeoutErr(context.Background(), context.DeadlineExceeded); errors.As(err, &te) {
		t.Errorf("no execution timeout configured, got %v", err)
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		err  error
		want string
	}{
		{&CompilationError{ModuleName: "demo", Err: cause}, `compile guest "demo": boom`},
		{&InstantiationError{ModuleName: "demo", InstanceID: "i-1", Err: cause}, `instantiate guest "demo" as i-1: boom`},
		{&ModuleNotFoundError{ModuleName: "demo"}, `guest "demo" is not compiled`},
		{&InstanceLimitError{Limit: 2}, "2 guest instances already running"},
		{&MemoryAccessError{Operation: "read", Address: 8, Length: 4, Err: cause}, "guest memory read [8, +4): boom"},
		{&HostFunctionError{FunctionName: "env", Err: cause}, `host module "env": boom`},
		{&TimeoutError{Duration: time.Second, Err: cause}, "guest call exceeded 1s"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("%T.Error() = %q, want %q", tt.err, got, tt.want)
		}
	}
}
