package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type HostConfig struct {
	AppPaths       []string     `mapstructure:"app_paths" validate:"min=1,dive,required"`
	LogLevel       string       `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	MetricsEnabled bool         `mapstructure:"metrics_enabled"`
	MetricsPort    int          `mapstructure:"metrics_port" validate:"required_if=MetricsEnabled true,gte=0,lte=65535"`
	Wasm           WasmConfig   `mapstructure:"wasm"`
	Bridge         BridgeConfig `mapstructure:"bridge"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages" validate:"gte=1,lte=65536"`
	// Enable debug logging.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances" validate:"gte=1"`
	// Per-call execution timeout for guest exports (seconds, 0 disables).
	ExecutionTimeout int `mapstructure:"execution_timeout" validate:"gte=0"`
}

// BridgeConfig holds text bridge and frame loop configuration.
type BridgeConfig struct {
	// Interval between Update ticks.
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	// Step budget of one Starlark execute-mode snippet.
	ScriptMaxSteps uint64 `mapstructure:"script_max_steps" validate:"gte=1"`
	// Console style: "terminal" or "log".
	Console string `mapstructure:"console" validate:"oneof=terminal log"`
}

// ExecutionTimeoutDuration returns the per-call guest timeout.
func (c WasmConfig) ExecutionTimeoutDuration() time.Duration {
	return time.Duration(c.ExecutionTimeout) * time.Second
}

func LoadHostConfig(configPath string) (*HostConfig, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("app_paths", []string{"./apps"})
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_enabled", false)
	v.SetDefault("metrics_port", 9090)

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 16)
	v.SetDefault("wasm.execution_timeout", 5)

	// Bridge defaults
	v.SetDefault("bridge.tick_interval", "16ms")
	v.SetDefault("bridge.script_max_steps", 100000)
	v.SetDefault("bridge.console", "terminal")

	v.SetEnvPrefix("BASEWASM")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg HostConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints.
func (c *HostConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// OverrideLogLevel replaces the configured log level and validates the result.
// The previous level is kept when level is rejected.
func (c *HostConfig) OverrideLogLevel(level string) error {
	prev := c.LogLevel
	c.LogLevel = level
	if err := c.Validate(); err != nil {
		c.LogLevel = prev
		return err
	}
	return nil
}
