package guest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/woxQAQ/basewasm-host/internal/wasm/wasmtest"
)

const validManifest = `name: hello
version: 1.0.0
title: Hello
wasm:
  file: hello.wasm
bridge:
  execute: script
exports:
  entry: main
start_functions:
  - _initialize
`

// writeApp creates dir/name holding manifest and, unless wasmBytes is nil,
// the module referenced as hello.wasm.
func writeApp(t *testing.T, dir, name, manifest string, wasmBytes []byte) string {
	t.Helper()
	appDir := filepath.Join(dir, name)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(appDir, ManifestFile), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if wasmBytes != nil {
		if err := os.WriteFile(filepath.Join(appDir, "hello.wasm"), wasmBytes, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return appDir
}

func helloWasm() []byte {
	return wasmtest.PrintGuest("hello world", wasmtest.ImportPrintFlush)
}
