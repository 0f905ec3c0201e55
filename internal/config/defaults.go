package config

import "time"

const (
	defaultQueueSize    = 64
	defaultBridgeName   = "jsBridge"
	defaultPollInterval = 250 * time.Millisecond
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Dispatch: DispatchConfig{
			QueueSize:     defaultQueueSize,
			MarshalToMain: true,
		},
		Bridge: BridgeConfig{
			Name:         defaultBridgeName,
			PollInterval: defaultPollInterval,
		},
		Snapshot: SnapshotConfig{
			Enabled: false,
		},
	}
}
