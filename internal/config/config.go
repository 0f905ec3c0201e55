// Package config loads webviewhost configuration from TOML and the environment.
package config

import "time"

// Config is the top-level configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging" toml:"logging" json:"logging" jsonschema:"description=Log output settings"`
	Dispatch DispatchConfig `mapstructure:"dispatch" toml:"dispatch" json:"dispatch" jsonschema:"description=Main thread dispatch settings"`
	Bridge   BridgeConfig   `mapstructure:"bridge" toml:"bridge" json:"bridge" jsonschema:"description=JavaScript bridge settings"`
	Snapshot SnapshotConfig `mapstructure:"snapshot" toml:"snapshot" json:"snapshot" jsonschema:"description=View state persistence"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" toml:"level" json:"level" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error,default=info"`
	Format string `mapstructure:"format" toml:"format" json:"format" jsonschema:"enum=console,enum=json,default=console"`
}

// DispatchConfig controls how work reaches the thread that owns the views.
type DispatchConfig struct {
	// QueueSize is the number of tasks the main loop buffers.
	QueueSize int `mapstructure:"queue_size" toml:"queue_size" json:"queue_size" jsonschema:"minimum=1,default=64"`
	// MarshalToMain runs view operations on a dedicated locked thread. When
	// false they run inline on the caller, which must then own the views.
	MarshalToMain bool `mapstructure:"marshal_to_main" toml:"marshal_to_main" json:"marshal_to_main" jsonschema:"default=true"`
}

// BridgeConfig controls IPC message delivery.
type BridgeConfig struct {
	// Name is the global JS object that receives callbacks.
	Name string `mapstructure:"name" toml:"name" json:"name" jsonschema:"default=jsBridge"`
	// PollInterval is how often pending messages are drained.
	PollInterval time.Duration `mapstructure:"poll_interval" toml:"poll_interval" json:"poll_interval" jsonschema:"type=string,default=250ms"`
}

// SnapshotConfig controls persistence of view state.
type SnapshotConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled" json:"enabled" jsonschema:"default=false"`
	Path    string `mapstructure:"path" toml:"path" json:"path" jsonschema:"description=SQLite file; defaults to the XDG data directory"`
}
