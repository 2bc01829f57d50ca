package guest

import (
	"time"

	"github.com/woxQAQ/basewasm-host/internal/bridge"
	"github.com/woxQAQ/basewasm-host/internal/wasm"
)

// App is a loaded guest application: its manifest and compiled Wasm module.
type App struct {
	// Manifest is the parsed app metadata
	Manifest *Manifest

	// Compiled is the compiled Wasm module
	Compiled *wasm.CompiledModule

	// LoadedAt is the timestamp when the app was loaded
	LoadedAt time.Time
}

// Name returns the app name.
func (a *App) Name() string {
	return a.Manifest.Name
}

// Version returns the app version.
func (a *App) Version() string {
	return a.Manifest.Version
}

// Title returns the console title, falling back to the name.
func (a *App) Title() string {
	if a.Manifest.Title != "" {
		return a.Manifest.Title
	}
	return a.Manifest.Name
}

// ExecuteMode returns how execute-mode flushes are run.
func (a *App) ExecuteMode() ExecuteMode {
	if a.Manifest.Bridge.Execute == "" {
		return ExecuteCommand
	}
	return a.Manifest.Bridge.Execute
}

// BridgeNames returns the guest symbol names the bridge should call.
// Unset names keep the bridge defaults.
func (a *App) BridgeNames() bridge.Names {
	e := a.Manifest.Exports
	return bridge.Names{
		Entry:  e.Entry,
		Update: e.Update,
		Resize: e.Resize,
		Memory: e.Memory,
	}
}

// StartFunctions returns the functions run at instantiation, nil for the
// runtime default.
func (a *App) StartFunctions() []string {
	return a.Manifest.StartFunctions
}
