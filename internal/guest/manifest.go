package guest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the file name looked up in every app directory.
const ManifestFile = "manifest.yaml"

// ExecuteMode selects how execute-mode flushes of an app are run.
type ExecuteMode string

const (
	// ExecuteCommand decodes snippets as JSON host commands.
	ExecuteCommand ExecuteMode = "command"
	// ExecuteScript runs snippets as sandboxed Starlark.
	ExecuteScript ExecuteMode = "script"
	// ExecuteDisabled discards snippets.
	ExecuteDisabled ExecuteMode = "disabled"
)

// Manifest represents the app manifest.yaml structure.
type Manifest struct {
	Name           string        `yaml:"name"`
	Version        string        `yaml:"version"`
	Title          string        `yaml:"title"`
	Wasm           WasmConfig    `yaml:"wasm"`
	Bridge         BridgeConfig  `yaml:"bridge"`
	Exports        ExportsConfig `yaml:"exports"`
	StartFunctions []string      `yaml:"start_functions"`
	Author         string        `yaml:"author"`
	License        string        `yaml:"license"`

	// Internal fields
	dir string // Directory containing manifest
}

// WasmConfig holds Wasm module configuration.
type WasmConfig struct {
	File string `yaml:"file"`
}

// BridgeConfig holds per-app bridge settings.
type BridgeConfig struct {
	Execute ExecuteMode `yaml:"execute"`
}

// ExportsConfig overrides the guest symbol names the bridge calls.
type ExportsConfig struct {
	Entry  string `yaml:"entry"`
	Update string `yaml:"update"`
	Resize string `yaml:"resize"`
	Memory string `yaml:"memory"`
}

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ParseManifest reads and parses manifest.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "name",
			Message: "name is required",
		}
	}

	if !namePattern.MatchString(m.Name) {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "name",
			Message: fmt.Sprintf("invalid name: %s (lowercase letters, digits, '.', '_' and '-')", m.Name),
		}
	}

	if m.Version == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "version",
			Message: "version is required",
		}
	}

	if m.Wasm.File == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "wasm.file",
			Message: "wasm.file is required",
		}
	}

	switch m.Bridge.Execute {
	case "", ExecuteCommand, ExecuteScript, ExecuteDisabled:
	default:
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "bridge.execute",
			Message: fmt.Sprintf("unknown execute mode: %s (must be one of: command, script, disabled)", m.Bridge.Execute),
		}
	}

	for _, fn := range m.StartFunctions {
		if fn == "" {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "start_functions",
				Message: "start function names must not be empty",
			}
		}
	}

	if _, err := os.Stat(m.WasmPath()); os.IsNotExist(err) {
		return &WasmNotFoundError{
			ManifestPath: m.Path(),
			WasmFile:     m.Wasm.File,
		}
	}

	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, ManifestFile)
}

// WasmPath returns the path to the Wasm file.
func (m *Manifest) WasmPath() string {
	return filepath.Join(m.dir, m.Wasm.File)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
