package config

import (
	"fmt"
	"strings"
)

// normalizeConfig replaces empty or unknown values with defaults.
func normalizeConfig(config *Config) {
	defaults := DefaultConfig()

	config.Logging.Level = strings.ToLower(strings.TrimSpace(config.Logging.Level))
	if config.Logging.Level == "" {
		config.Logging.Level = defaults.Logging.Level
	}
	config.Logging.Format = strings.ToLower(strings.TrimSpace(config.Logging.Format))
	if config.Logging.Format == "" {
		config.Logging.Format = defaults.Logging.Format
	}
	if config.Dispatch.QueueSize == 0 {
		config.Dispatch.QueueSize = defaults.Dispatch.QueueSize
	}
	if strings.TrimSpace(config.Bridge.Name) == "" {
		config.Bridge.Name = defaults.Bridge.Name
	}
	if config.Bridge.PollInterval == 0 {
		config.Bridge.PollInterval = defaults.Bridge.PollInterval
	}
}

// validateConfig reports every invalid value at once.
func validateConfig(config *Config) error {
	var validationErrors []string

	switch config.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("logging.level must be one of: trace, debug, info, warn, error (got: %s)", config.Logging.Level))
	}
	switch config.Logging.Format {
	case "console", "json":
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("logging.format must be console or json (got: %s)", config.Logging.Format))
	}

	if config.Dispatch.QueueSize < 1 {
		validationErrors = append(validationErrors, "dispatch.queue_size must be at least 1")
	}
	if config.Bridge.PollInterval < 0 {
		validationErrors = append(validationErrors, "bridge.poll_interval must be positive")
	}
	if !isJSIdentifier(config.Bridge.Name) {
		validationErrors = append(validationErrors, fmt.Sprintf("bridge.name must be a JavaScript identifier (got: %s)", config.Bridge.Name))
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("%s", strings.Join(validationErrors, "; "))
	}
	return nil
}

func isJSIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
