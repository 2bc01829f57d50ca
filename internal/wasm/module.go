package wasm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/experimental/logging"
	"go.uber.org/zap"
)

// CompiledModule is a guest binary compiled by the runtime.
type CompiledModule struct {
	Module wazero.CompiledModule

	// Name is the cache key, usually the app name.
	Name string
	// Origin is the file the bytes came from, or "memory".
	Origin string
	Size   int
	// Digest is the hex SHA-256 of the bytes. A source whose digest differs
	// from the cached one is compiled again.
	Digest     string
	CompiledAt time.Time

	// Unresolved lists env imports no host function satisfies.
	Unresolved []string
}

// Source yields guest bytecode under a cache key.
type Source interface {
	Key() string
	Origin() string
	Read() ([]byte, error)
}

// FileSource reads a .wasm file.
type FileSource struct {
	Name string
	Path string
}

func (f FileSource) Key() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Path
}

func (f FileSource) Origin() string        { return f.Path }
func (f FileSource) Read() ([]byte, error) { return os.ReadFile(f.Path) }

// BytesSource serves bytecode already in memory.
type BytesSource struct {
	Name string
	Data []byte
}

func (b BytesSource) Key() string           { return b.Name }
func (b BytesSource) Origin() string        { return "memory" }
func (b BytesSource) Read() ([]byte, error) { return b.Data, nil }

// ModuleLoader compiles guest binaries into the runtime's module cache.
type ModuleLoader struct {
	runtime *Runtime
	logger  *zap.Logger
}

// NewModuleLoader creates a new module loader.
func NewModuleLoader(runtime *Runtime, logger *zap.Logger) *ModuleLoader {
	return &ModuleLoader{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-loader")),
	}
}

// Load compiles src unless the cache already holds the same bytes under
// its key.
func (l *ModuleLoader) Load(ctx context.Context, src Source) (*CompiledModule, error) {
	key := src.Key()

	wasmBytes, err := src.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", key, err)
	}
	sum := sha256.Sum256(wasmBytes)
	digest := hex.EncodeToString(sum[:])

	if cached, ok := l.runtime.GetCompiledModule(key); ok {
		if cached.Digest == digest {
			l.logger.Debug("Module cache hit", zap.String("module", key))
			return cached, nil
		}
		l.logger.Info("Module changed, recompiling",
			zap.String("module", key),
			zap.String("old_digest", cached.Digest[:12]),
			zap.String("new_digest", digest[:12]),
		)
	}

	// Listeners attach at compile time, so tracing needs a fresh compile.
	if l.runtime.config.DebugEnabled {
		ctx = experimental.WithFunctionListenerFactory(ctx,
			logging.NewLoggingListenerFactory(&traceWriter{logger: l.logger.Named("trace")}))
	}

	start := time.Now()
	compiled, err := l.runtime.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, &CompilationError{ModuleName: key, Err: err}
	}

	cm := &CompiledModule{
		Module:     compiled,
		Name:       key,
		Origin:     src.Origin(),
		Size:       len(wasmBytes),
		Digest:     digest,
		CompiledAt: time.Now(),
		Unresolved: unresolvedImports(compiled),
	}
	l.runtime.StoreCompiledModule(cm)

	l.logger.Info("Guest module compiled",
		zap.String("module", key),
		zap.String("origin", cm.Origin),
		zap.Int("size_bytes", cm.Size),
		zap.Int("imports", len(compiled.ImportedFunctions())),
		zap.Int("exports", len(compiled.ExportedFunctions())),
		zap.Duration("duration", time.Since(start)),
	)
	if len(cm.Unresolved) > 0 {
		l.logger.Warn("Guest imports host functions this host does not provide; instantiation will fail",
			zap.String("module", key),
			zap.Strings("imports", cm.Unresolved),
		)
	}

	return cm, nil
}

// LoadModuleFromFile compiles the file at path and caches it under name.
func (l *ModuleLoader) LoadModuleFromFile(ctx context.Context, name, path string) (*CompiledModule, error) {
	return l.Load(ctx, FileSource{Name: name, Path: path})
}

// LoadModuleFromMemory compiles data and caches it under name.
func (l *ModuleLoader) LoadModuleFromMemory(ctx context.Context, name string, data []byte) (*CompiledModule, error) {
	return l.Load(ctx, BytesSource{Name: name, Data: data})
}

// unresolvedImports returns the env function imports outside hostFunctionNames.
func unresolvedImports(compiled wazero.CompiledModule) []string {
	var missing []string
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		if module != HostModuleName {
			continue
		}
		if _, ok := hostFunctionNames[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// traceWriter turns wazero's call trace lines into debug records. The
// listener writes a line in several pieces.
type traceWriter struct {
	logger *zap.Logger
	line   strings.Builder
}

func (w *traceWriter) Write(p []byte) (int, error) {
	return w.WriteString(string(p))
}

func (w *traceWriter) WriteString(s string) (int, error) {
	for _, r := range s {
		if r != '\n' {
			w.line.WriteRune(r)
			continue
		}
		if w.line.Len() > 0 {
			w.logger.Debug(w.line.String())
		}
		w.line.Reset()
	}
	return len(s), nil
}
