package guest

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/basewasm-host/internal/bridge"
	"github.com/woxQAQ/basewasm-host/internal/wasm"
)

type recordingConsole struct {
	prints []string
}

func (c *recordingConsole) Print(text string) { c.prints = append(c.prints, text) }
func (c *recordingConsole) Log(string)        {}

func newTestManager(t *testing.T, paths []string) *Manager {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	runtime, err := wasm.NewRuntime(ctx, logger, wasm.DefaultRuntimeConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	manager := NewManager(paths, runtime, wasm.NewHostFunctions(logger), logger)
	t.Cleanup(func() { manager.Shutdown(context.Background()) })
	return manager
}

func TestManager_NewManager(t *testing.T) {
	manager := newTestManager(t, []string{"/tmp/apps"})

	if manager.IsLoaded() {
		t.Error("Manager should not be loaded initially")
	}
}

func TestManager_GetApp_NotFound(t *testing.T) {
	manager := newTestManager(t, nil)

	_, err := manager.GetApp("nonexistent")
	if _, ok := err.(*AppNotFoundError); !ok {
		t.Errorf("expected AppNotFoundError, got %T", err)
	}
}

func TestManager_LoadAll_NoApps(t *testing.T) {
	manager := newTestManager(t, []string{t.TempDir()})

	if err := manager.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() should tolerate empty paths: %v", err)
	}
	if !manager.IsLoaded() {
		t.Error("Manager should be loaded after LoadAll()")
	}
	if err := manager.LoadAll(context.Background()); err == nil {
		t.Error("second LoadAll() should fail")
	}
}

func TestManager_LoadAllAndInstantiate(t *testing.T) {
	base := t.TempDir()
	writeApp(t, base, "hello", validManifest, helloWasm())
	manager := newTestManager(t, []string{base})
	ctx := context.Background()

	if err := manager.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	app, err := manager.GetApp("hello")
	if err != nil {
		t.Fatalf("GetApp() failed: %v", err)
	}

	console := &recordingConsole{}
	b := bridge.New(bridge.Options{Title: app.Title(), Console: console, Names: app.BridgeNames(), Logger: zap.NewNop()})

	inst, err := manager.Instantiate(ctx, "hello", InstanceOptions{Bridge: b})
	if err != nil {
		t.Fatalf("Instantiate() failed: %v", err)
	}

	// The manifest renames the entry point to "main", which this guest lacks.
	if err := b.Init(ctx, inst.Loader()); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if len(console.prints) != 0 {
		t.Errorf("entry 'main' is absent, nothing should print: %q", console.prints)
	}

	if _, err := b.Call(ctx, "Init"); err != nil {
		t.Fatalf("Call(Init) failed: %v", err)
	}
	if len(console.prints) != 1 || console.prints[0] != "hello world" {
		t.Errorf("prints = %q, want [\"hello world\"]", console.prints)
	}
}

func TestManager_LoadDir(t *testing.T) {
	manager := newTestManager(t, nil)
	dir := writeApp(t, t.TempDir(), "hello", validManifest, helloWasm())

	app, err := manager.LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDir() failed: %v", err)
	}
	if manager.Registry().Count() != 1 || app.Name() != "hello" {
		t.Error("LoadDir() should register the app")
	}
}

func TestManager_Instantiate_Unknown(t *testing.T) {
	manager := newTestManager(t, nil)

	_, err := manager.Instantiate(context.Background(), "missing", InstanceOptions{})
	if _, ok := err.(*AppNotFoundError); !ok {
		t.Errorf("expected AppNotFoundError, got %T", err)
	}
}
