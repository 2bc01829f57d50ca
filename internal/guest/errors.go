package guest

import (
	"fmt"
)

// ManifestNotFoundError reports an app directory without a readable manifest.yaml.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("read app manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error { return e.Err }

// ManifestParseError reports a manifest.yaml that is not valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("parse app manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error { return e.Err }

// ManifestValidationError reports a manifest field with an invalid value.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	return fmt.Sprintf("app manifest %s: %s: %s", e.Path, e.Field, e.Message)
}

// WasmNotFoundError reports a manifest whose wasm.file does not exist.
type WasmNotFoundError struct {
	ManifestPath string
	WasmFile     string
}

func (e *WasmNotFoundError) Error() string {
	return fmt.Sprintf("app manifest %s: guest binary %s does not exist", e.ManifestPath, e.WasmFile)
}

// AppLoadError reports an app whose guest binary failed to compile.
type AppLoadError struct {
	AppName string
	Err     error
}

func (e *AppLoadError) Error() string {
	return fmt.Sprintf("load app %q: %v", e.AppName, e.Err)
}

func (e *AppLoadError) Unwrap() error { return e.Err }

// AppNotFoundError reports a lookup of an app that is not loaded.
type AppNotFoundError struct {
	AppName string
}

func (e *AppNotFoundError) Error() string {
	return fmt.Sprintf("app %q is not loaded", e.AppName)
}

// AppAlreadyRegisteredError reports two apps with the same name.
type AppAlreadyRegisteredError struct {
	AppName string
}

func (e *AppAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("app %q is loaded twice", e.AppName)
}

// NoAppsFoundError reports app paths that hold no loadable app.
type NoAppsFoundError struct {
	Paths []string
}

func (e *NoAppsFoundError) Error() string {
	return fmt.Sprintf("no loadable apps under %v", e.Paths)
}
