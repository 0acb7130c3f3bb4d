package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - QUILL_CONFIG_PATH: config file location (default: ~/.config/quill.toml)
//   - QUILL_HOME: base directory for quill data (default: ~/.local/share/quill)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking QUILL_CONFIG_PATH env var
// first, then falling back to the default ~/.config/quill.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("QUILL_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "quill.toml"), nil
}

// getBaseDir returns the base directory for quill data, checking QUILL_HOME env
// var first, then falling back to the XDG default ~/.local/share/quill.
func getBaseDir() (string, error) {
	if path := os.Getenv("QUILL_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "quill"), nil
}
