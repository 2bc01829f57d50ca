package guest

import (
	"errors"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		err  error
		want string
	}{
		{&ManifestNotFoundError{Path: "a/manifest.yaml", Err: cause}, "read app manifest a/manifest.yaml: boom"},
		{&ManifestParseError{Path: "a/manifest.yaml", Err: cause}, "parse app manifest a/manifest.yaml: boom"},
		{&ManifestValidationError{Path: "a/manifest.yaml", Field: "name", Message: "name is required"}, "app manifest a/manifest.yaml: name: name is required"},
		{&WasmNotFoundError{ManifestPath: "a/manifest.yaml", WasmFile: "app.wasm"}, "app manifest a/manifest.yaml: guest binary app.wasm does not exist"},
		{&AppLoadError{AppName: "demo", Err: cause}, `load app "demo": boom`},
		{&AppNotFoundError{AppName: "demo"}, `app "demo" is not loaded`},
		{&AppAlreadyRegisteredError{AppName: "demo"}, `app "demo" is loaded twice`},
		{&NoAppsFoundError{Paths: []string{"./apps"}}, "no loadable apps under [./apps]"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("%T.Error() = %q, want %q", tt.err, got, tt.want)
		}
	}

	for _, err := range []error{
		&ManifestNotFoundError{Err: cause},
		&ManifestParseError{Err: cause},
		&AppLoadError{Err: cause},
	} {
		if !errors.Is(err, cause) {
			t.Errorf("%T should unwrap to its cause", err)
		}
	}
}
