// Package config loads and validates the Name Manager's and Storage
// Server's process configuration: viper-backed loading in which the YAML
// file overrides the defaults and an env var overrides a key that the
// file sets (no per-field CLI flags are bound, and env vars are not read
// when no config file is found), mapstructure decoding with
// duration/byte-size-style hooks, and validator/v10 struct-tag
// validation after decode.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/shrey715/network-file-system-sub002/internal/bytesize"
)

// LoggingConfig controls both processes' structured logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
}

// MetricsConfig controls the admin HTTP server's /healthz and /metrics.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// LockConfig is the NM's lock-adjacent tunable: how long NM waits to
// connect to an SS for any fan-out call (CREATE, DELETE, CHECKPOINT,
// REVERT, and the aggregation read behind INFO/VIEWCHECKPOINT/
// LISTCHECKPOINTS). It bounds the dial only; the request/response
// exchange after connecting has no deadline. Hot-reloadable.
type LockConfig struct {
	SSDialTimeout time.Duration `mapstructure:"ss_dial_timeout" yaml:"ss_dial_timeout" validate:"required,gt=0"`
}

// PlacementConfig is the NM's placement-adjacent tunable: the heartbeat
// interval whose multiples gate the SUSPECT/DEAD liveness thresholds
// that `nm/placement.Choose` implicitly honors via `LeastLoadedAlive`.
// Hot-reloadable.
type PlacementConfig struct {
	LivenessInterval time.Duration `mapstructure:"liveness_interval" yaml:"liveness_interval" validate:"required,gt=0"`
}

// NMConfig is the Name Manager process's full configuration.
type NMConfig struct {
	ListenAddr string          `mapstructure:"listen_addr" yaml:"listen_addr" validate:"required"`
	DataDir    string          `mapstructure:"data_dir" yaml:"data_dir" validate:"required"`
	Logging    LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Metrics    MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Lock       LockConfig      `mapstructure:"lock" yaml:"lock"`
	Placement  PlacementConfig `mapstructure:"placement" yaml:"placement"`
}

// SSConfig is the Storage Server process's full configuration.
type SSConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr" yaml:"listen_addr" validate:"required"`
	NMAddr            string        `mapstructure:"nm_addr" yaml:"nm_addr" validate:"required"`
	BaseDir           string        `mapstructure:"base_dir" yaml:"base_dir" validate:"required"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval" validate:"required,gt=0"`
	AllowExec         bool          `mapstructure:"allow_exec" yaml:"allow_exec"`
	ExecOutputCap     bytesize.ByteSize `mapstructure:"exec_output_cap" yaml:"exec_output_cap" validate:"omitempty,gt=0"`
	ExecTimeout       time.Duration `mapstructure:"exec_timeout" yaml:"exec_timeout" validate:"omitempty,gt=0"`
	Logging           LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics           MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// DefaultNMConfig returns the configuration used when neither the config
// file nor an env var overrides a field.
func DefaultNMConfig() *NMConfig {
	return &NMConfig{
		ListenAddr: "127.0.0.1:9000",
		DataDir:    "./data/nm",
		Logging:    LoggingConfig{Level: "INFO", Format: "text"},
		Metrics:    MetricsConfig{Enabled: true, ListenAddr: "127.0.0.1:9001"},
		Lock:       LockConfig{SSDialTimeout: 5 * time.Second},
		Placement:  PlacementConfig{LivenessInterval: 10 * time.Second},
	}
}

// DefaultSSConfig returns the configuration used when neither the config
// file nor an env var overrides a field.
func DefaultSSConfig() *SSConfig {
	return &SSConfig{
		ListenAddr:        "127.0.0.1:9100",
		NMAddr:            "127.0.0.1:9000",
		BaseDir:           "./data/ss",
		HeartbeatInterval: 3 * time.Second,
		AllowExec:         false,
		ExecOutputCap:     64 << 10,
		ExecTimeout:       5 * time.Second,
		Logging:           LoggingConfig{Level: "INFO", Format: "text"},
		Metrics:           MetricsConfig{Enabled: true, ListenAddr: "127.0.0.1:9101"},
	}
}

var validate = validator.New()

// Validate checks cfg's `validate:"..."` tags.
func Validate(cfg any) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Loader wraps the viper instance that produced a config, so its caller
// can later ask for hot-reload notifications without re-reading the file
// from scratch.
type Loader struct {
	v      *viper.Viper
	prefix string
}

func newViper(envPrefix, configPath string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.ToLower(envPrefix))
		v.SetConfigType("yaml")
	}
	return v
}

func readIfPresent(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		byteSizeDecodeHook(),
	)
}

// byteSizeDecodeHook lets ExecOutputCap take human-readable sizes like
// "64Ki" or "1Mi" in config files, in addition to plain integers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// LoadNM reads the Name Manager's configuration from configPath (or, if
// empty, `./nmfs.yaml`), falling back to DefaultNMConfig for anything the
// file/env don't set, and returns a Loader that can later watch the Lock/
// Placement sub-config for changes.
func LoadNM(configPath string) (*NMConfig, *Loader, error) {
	v := newViper("NMFS", configPath)
	found, err := readIfPresent(v)
	if err != nil {
		return nil, nil, err
	}

	cfg := DefaultNMConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
			return nil, nil, fmt.Errorf("unmarshal nm config: %w", err)
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, &Loader{v: v, prefix: "NMFS"}, nil
}

// LoadSS reads the Storage Server's configuration from configPath (or, if
// empty, `./ssfs.yaml`), falling back to DefaultSSConfig for anything the
// file/env don't set.
func LoadSS(configPath string) (*SSConfig, error) {
	v := newViper("SSFS", configPath)
	found, err := readIfPresent(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultSSConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
			return nil, fmt.Errorf("unmarshal ss config: %w", err)
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(cfg any, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// WatchLockAndPlacement installs a viper config-change callback that
// re-decodes only the Lock/Placement sub-config and invokes onChange with
// the results; namespace data is never touched by this path
//. No-op if the config was loaded without a backing file.
func (l *Loader) WatchLockAndPlacement(onChange func(LockConfig, PlacementConfig)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(_ fsnotify.Event) {
		var reloaded NMConfig
		if err := l.v.Unmarshal(&reloaded, viper.DecodeHook(decodeHooks())); err != nil {
			return
		}
		if err := Validate(&reloaded); err != nil {
			return
		}
		onChange(reloaded.Lock, reloaded.Placement)
	})
	l.v.WatchConfig()
}
