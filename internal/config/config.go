// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"firestige.xyz/otusdpi/internal/core"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `otus-dpi:` root key in YAML.
type GlobalConfig struct {
	Log     LogConfig     `mapstructure:"log"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Capture CaptureConfig `mapstructure:"capture"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Output  OutputConfig  `mapstructure:"output"`
	Workers int           `mapstructure:"workers"` // Parallel files in classify; 0 = GOMAXPROCS
}

// ─── Engine ───

// EngineConfig configures the flow table and dissector scheduling.
type EngineConfig struct {
	Shards      int                       `mapstructure:"shards"`
	MaxFlows    int                       `mapstructure:"max_flows"`
	IdleTimeout string                    `mapstructure:"idle_timeout"`
	Dissectors  map[string]map[string]any `mapstructure:"dissectors"` // Raw per-dissector options

	idleTimeout time.Duration
}

// IdleTimeoutDuration returns the parsed idle timeout.
func (e EngineConfig) IdleTimeoutDuration() time.Duration {
	return e.idleTimeout
}

// DissectorOptions are the options every dissector accepts.
type DissectorOptions struct {
	Enabled bool `mapstructure:"enabled"`
}

// DissectorOptions decodes the options for dissector name. Names are matched
// case-insensitively; a dissector without an entry is enabled.
func (e EngineConfig) DissectorOptions(name string) (DissectorOptions, error) {
	opts := DissectorOptions{Enabled: true}
	for key, raw := range e.Dissectors {
		if !strings.EqualFold(key, name) {
			continue
		}
		if err := mapstructure.Decode(raw, &opts); err != nil {
			return opts, fmt.Errorf("dissector %s options: %w", name, err)
		}
	}
	return opts, nil
}

// ─── Capture ───

// CaptureConfig configures live capture for `sniff`.
type CaptureConfig struct {
	Interface    string `mapstructure:"interface"`
	SnapLen      int    `mapstructure:"snap_len"`
	BufferSizeMB int    `mapstructure:"buffer_size_mb"`
	TimeoutMs    int    `mapstructure:"timeout_ms"`
	FanoutID     uint16 `mapstructure:"fanout_id"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Output ───

// OutputConfig selects the report format.
type OutputConfig struct {
	Format string `mapstructure:"format"` // table / json / yaml
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string           `mapstructure:"level"`  // trace / debug / info / warn / error
	Format     string           `mapstructure:"format"` // json / text / pattern
	Pattern    string           `mapstructure:"pattern"`
	TimeFormat string           `mapstructure:"time_format"`
	Caller     bool             `mapstructure:"caller"`
	Outputs    LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains additional log destinations. Stdout is always on.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `otus-dpi: ...`.
type configRoot struct {
	OtusDPI GlobalConfig `mapstructure:"otus-dpi"`
}

// Load loads configuration from path. An empty path yields the defaults.
// Env vars override file values, e.g. OTUS_DPI_LOG_LEVEL.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Key "otus-dpi.log.level" maps to env "OTUS_DPI_LOG_LEVEL".
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.OtusDPI

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "otus-dpi." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("otus-dpi.log.level", "info")
	v.SetDefault("otus-dpi.log.format", "text")
	v.SetDefault("otus-dpi.log.time_format", "2006-01-02 15:04:05.000")
	v.SetDefault("otus-dpi.log.caller", false)
	v.SetDefault("otus-dpi.log.outputs.file.enabled", false)
	v.SetDefault("otus-dpi.log.outputs.file.path", "/var/log/otus-dpi/otus-dpi.log")
	v.SetDefault("otus-dpi.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("otus-dpi.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("otus-dpi.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("otus-dpi.log.outputs.file.rotation.compress", true)

	// Engine defaults
	v.SetDefault("otus-dpi.engine.shards", 16)
	v.SetDefault("otus-dpi.engine.max_flows", 262144)
	v.SetDefault("otus-dpi.engine.idle_timeout", "5m")

	// Capture defaults
	v.SetDefault("otus-dpi.capture.snap_len", 65535)
	v.SetDefault("otus-dpi.capture.buffer_size_mb", 32)
	v.SetDefault("otus-dpi.capture.timeout_ms", 100)

	// Metrics defaults
	v.SetDefault("otus-dpi.metrics.enabled", false)
	v.SetDefault("otus-dpi.metrics.listen", ":9092")
	v.SetDefault("otus-dpi.metrics.path", "/metrics")

	v.SetDefault("otus-dpi.output.format", "table")
	v.SetDefault("otus-dpi.workers", 0)
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text", "pattern":
	default:
		return fmt.Errorf("%w: invalid log format: %s (must be json/text/pattern)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", core.ErrConfigInvalid)
	}

	// ── Engine ──
	if cfg.Engine.Shards <= 0 {
		return fmt.Errorf("%w: engine.shards must be positive, got %d", core.ErrConfigInvalid, cfg.Engine.Shards)
	}
	if cfg.Engine.MaxFlows < 0 {
		return fmt.Errorf("%w: engine.max_flows must not be negative, got %d", core.ErrConfigInvalid, cfg.Engine.MaxFlows)
	}
	d, err := time.ParseDuration(cfg.Engine.IdleTimeout)
	if err != nil {
		return fmt.Errorf("%w: engine.idle_timeout: %v", core.ErrConfigInvalid, err)
	}
	if d <= 0 {
		return fmt.Errorf("%w: engine.idle_timeout must be positive", core.ErrConfigInvalid)
	}
	cfg.Engine.idleTimeout = d
	for name := range cfg.Engine.Dissectors {
		if _, err := cfg.Engine.DissectorOptions(name); err != nil {
			return fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
		}
	}

	// ── Output ──
	switch cfg.Output.Format {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("%w: invalid output format: %s (must be table/json/yaml)", core.ErrConfigInvalid, cfg.Output.Format)
	}

	// ── Workers ──
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", core.ErrConfigInvalid)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics are enabled", core.ErrConfigInvalid)
	}

	return nil
}
