package config

import (
	"os"
	"path/filepath"
)

const (
	appName      = "webviewhost"
	databaseName = "views.sqlite"
	configName   = "config"
	configType   = "toml"
	envPrefix    = "WEBVIEWHOST"
	dirPerm      = 0o755
	filePerm     = 0o644
)

// GetConfigDir returns $XDG_CONFIG_HOME/webviewhost (default ~/.config/webviewhost).
func GetConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns $XDG_DATA_HOME/webviewhost (default ~/.local/share/webviewhost).
func GetDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// GetDatabaseFile returns the default snapshot database path.
func GetDatabaseFile() (string, error) {
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, databaseName), nil
}

func xdgDir(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, appName), nil
}
