package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/basewasm-host/internal/config"
	"github.com/woxQAQ/basewasm-host/internal/guest"
	"github.com/woxQAQ/basewasm-host/internal/wasm"
	"github.com/woxQAQ/basewasm-host/internal/wasm/wasmtest"
)

type recordingConsole struct {
	prints []string
	logs   []string
}

func (c *recordingConsole) Print(text string)  { c.prints = append(c.prints, text) }
func (c *recordingConsole) Log(message string) { c.logs = append(c.logs, message) }

func writeApp(t *testing.T, base, name, execute string, wasmBytes []byte) {
	t.Helper()
	dir := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	manifest := fmt.Sprintf("name: %s\nversion: 0.1.0\ntitle: Demo\nwasm:\n  file: app.wasm\nbridge:\n  execute: %s\n", name, execute)
	require.NoError(t, os.WriteFile(filepath.Join(dir, guest.ManifestFile), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.wasm"), wasmBytes, 0o644))
}

func testConfig(paths ...string) *config.HostConfig {
	return &config.HostConfig{
		AppPaths: paths,
		LogLevel: "debug",
		Wasm: config.WasmConfig{
			MemoryPages:      16,
			MaxInstances:     4,
			ExecutionTimeout: 5,
		},
		Bridge: config.BridgeConfig{
			TickInterval:   time.Millisecond,
			ScriptMaxSteps: 10_000,
			Console:        "log",
		},
	}
}

func newTestHost(t *testing.T, base string, resizes <-chan Size) (*Host, *recordingConsole) {
	t.Helper()
	return newTestHostWithConfig(t, testConfig(base), resizes)
}

func newTestHostWithConfig(t *testing.T, cfg *config.HostConfig, resizes <-chan Size) (*Host, *recordingConsole) {
	t.Helper()
	console := &recordingConsole{}
	if resizes == nil {
		resizes = make(chan Size)
	}
	h, err := New(context.Background(), cfg, zaptest.NewLogger(t), Options{
		Console: console,
		Stdout:  os.Stderr,
		Stderr:  os.Stderr,
		Resizes: resizes,
	})
	require.NoError(t, err)
	t.Cleanup(func() { h.Close(context.Background()) })
	return h, console
}

func TestRun_HelloWorld(t *testing.T) {
	base := t.TempDir()
	writeApp(t, base, "hello", "command", wasmtest.PrintGuest("hello world", wasmtest.ImportPrintFlush))
	h, console := newTestHost(t, base, nil)

	err := h.Run(context.Background(), RunOptions{App: "hello", Frames: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"hello world"}, console.prints)
	assert.Contains(t, console.logs, "Demo : Initialized")
}

func TestRun_PicksOnlyApp(t *testing.T) {
	base := t.TempDir()
	writeApp(t, base, "hello", "command", wasmtest.PrintGuest("only", wasmtest.ImportPrintFlush))
	h, console := newTestHost(t, base, nil)

	require.NoError(t, h.Run(context.Background(), RunOptions{Frames: 1}))
	assert.Equal(t, []string{"only"}, console.prints)
	assert.Equal(t, []string{"hello"}, h.Apps())
}

func TestRun_AmbiguousApp(t *testing.T) {
	base := t.TempDir()
	writeApp(t, base, "one", "command", wasmtest.PrintGuest("1", wasmtest.ImportPrintFlush))
	writeApp(t, base, "two", "command", wasmtest.PrintGuest("2", wasmtest.ImportPrintFlush))
	h, _ := newTestHost(t, base, nil)

	err := h.Run(context.Background(), RunOptions{Frames: 1})
	assert.Error(t, err)
}

func TestRun_UnknownApp(t *testing.T) {
	h, _ := newTestHost(t, t.TempDir(), nil)

	err := h.Run(context.Background(), RunOptions{App: "missing", Frames: 1})
	var notFound *guest.AppNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRun_CommandExecute(t *testing.T) {
	base := t.TempDir()
	snippet := `[{"cmd":"log","args":["from guest",7]},{"cmd":"print","args":["printed"]}]`
	writeApp(t, base, "cmd", "command", wasmtest.PrintGuest(snippet, wasmtest.ImportPrintFlushExecute))
	h, console := newTestHost(t, base, nil)

	require.NoError(t, h.Run(context.Background(), RunOptions{Frames: 1}))

	assert.Contains(t, console.logs, "Demo : from guest 7")
	assert.Equal(t, []string{"printed"}, console.prints)
}

func TestRun_CommandCallsGuest(t *testing.T) {
	base := t.TempDir()
	// onWindowResize(0, 4) prints the first four bytes of the snippet.
	snippet := `{"cmd":"call","args":["onWindowResize",0,4]}`
	writeApp(t, base, "cmd", "command", wasmtest.PrintGuest(snippet, wasmtest.ImportPrintFlushExecute))
	h, console := newTestHost(t, base, nil)

	require.NoError(t, h.Run(context.Background(), RunOptions{Frames: 1}))

	assert.Equal(t, []string{`{"cm`}, console.prints)
}

func TestRun_MalformedCommandIsSwallowed(t *testing.T) {
	base := t.TempDir()
	writeApp(t, base, "cmd", "command", wasmtest.PrintGuest("not json", wasmtest.ImportPrintFlushExecute))
	h, console := newTestHost(t, base, nil)

	require.NoError(t, h.Run(context.Background(), RunOptions{Frames: 2}))
	assert.Empty(t, console.prints)
}

func TestRun_ScriptExecute(t *testing.T) {
	base := t.TempDir()
	writeApp(t, base, "star", "script", wasmtest.PrintGuest(`log("sum", 1 + 2)`+"\n"+`print("done")`, wasmtest.ImportPrintFlushExecute))
	h, console := newTestHost(t, base, nil)

	require.NoError(t, h.Run(context.Background(), RunOptions{Frames: 1}))

	assert.Contains(t, console.logs, "Demo : sum 3")
	assert.Equal(t, []string{"done"}, console.prints)
}

func TestRun_ExecuteDisabled(t *testing.T) {
	base := t.TempDir()
	writeApp(t, base, "off", "disabled", wasmtest.PrintGuest(`{"cmd":"print","args":["x"]}`, wasmtest.ImportPrintFlushExecute))
	h, console := newTestHost(t, base, nil)

	require.NoError(t, h.Run(context.Background(), RunOptions{Frames: 1}))
	assert.Empty(t, console.prints)
}

func TestRun_Resize(t *testing.T) {
	base := t.TempDir()
	writeApp(t, base, "hello", "command", wasmtest.PrintGuest("abcdef", wasmtest.ImportPrintFlush))
	resizes := make(chan Size, 1)
	resizes <- Size{Width: 2, Height: 3}
	h, console := newTestHost(t, base, resizes)

	require.NoError(t, h.Run(context.Background(), RunOptions{Frames: 50}))

	assert.Contains(t, console.prints, "cde")
}

func TestRun_StopsOnCancel(t *testing.T) {
	base := t.TempDir()
	writeApp(t, base, "hello", "command", wasmtest.PrintGuest("x", wasmtest.ImportPrintFlush))
	h, _ := newTestHost(t, base, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, h.Run(ctx, RunOptions{}))
}

func TestRun_CancelDuringGuestCall(t *testing.T) {
	base := t.TempDir()
	writeApp(t, base, "spin", "command", wasmtest.SpinGuest())
	h, _ := newTestHost(t, base, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// Update never returns on its own; only the cancellation ends it.
	assert.NoError(t, h.Run(ctx, RunOptions{}))
}

func TestRun_GuestTimeout(t *testing.T) {
	base := t.TempDir()
	writeApp(t, base, "spin", "command", wasmtest.SpinGuest())
	cfg := testConfig(base)
	cfg.Wasm.ExecutionTimeout = 1
	h, _ := newTestHostWithConfig(t, cfg, nil)

	err := h.Run(context.Background(), RunOptions{})
	var timeout *wasm.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, time.Second, timeout.Duration)
}

func TestRun_RecordsMetrics(t *testing.T) {
	base := t.TempDir()
	writeApp(t, base, "hello", "command", wasmtest.PrintGuest("hello", wasmtest.ImportPrintFlush))
	h, _ := newTestHost(t, base, nil)

	require.NoError(t, h.Run(context.Background(), RunOptions{Frames: 2}))

	families, err := h.Metrics().Registry().Gather()
	require.NoError(t, err)

	found := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				found[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				found[mf.GetName()] += m.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, found["basewasm_bridge_flushes_total"])
	// Init prints once, each Update once.
	assert.Equal(t, 3.0, found["basewasm_bridge_writes_total"])
	assert.Equal(t, 0.0, found["basewasm_wasm_instances"])
}

func TestHost_LoadDir(t *testing.T) {
	h, _ := newTestHost(t, t.TempDir(), nil)
	extra := t.TempDir()
	writeApp(t, extra, "extra", "command", wasmtest.PrintGuest("x", wasmtest.ImportPrintFlush))

	name, err := h.LoadDir(context.Background(), filepath.Join(extra, "extra"))
	require.NoError(t, err)
	assert.Equal(t, "extra", name)
	assert.Equal(t, []string{"extra"}, h.Apps())
}
