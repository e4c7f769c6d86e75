package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the paths starboard uses when the config does not say otherwise.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - STARBOARD_CONFIG_PATH: config file location (default: ~/.config/starboard.toml)
//   - STARBOARD_HOME: base directory for ledgers and logs (default: ~/.local/share/starboard)
func GetDefaults() (*Defaults, error) {
	configPath, err := envOrHome("STARBOARD_CONFIG_PATH", ".config", "starboard.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrHome("STARBOARD_HOME", ".local", "share", "starboard")
	if err != nil {
		return nil, err
	}
	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// envOrHome returns the value of env if set, else the path under the user's home directory.
func envOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
