package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CLIConfig holds the connection to a prospector server. Warehouse
// credentials live in the secrets file read by config.Load, not here.
type CLIConfig struct {
	ServerURL string `yaml:"server_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	// Remote makes read commands query the server as if --remote were set.
	Remote bool `yaml:"remote,omitempty"`
}

const cliConfigHeader = "# prospector server connection, managed by 'prospector config login/logout'\n"

// cliConfigPath returns the path to the CLI config file. It sits next to the
// warehouse secrets file.
func cliConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "prospector", "config.yaml"), nil
}

// loadCLIConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadCLIConfig() (CLIConfig, error) {
	path, err := cliConfigPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveCLIConfig writes the CLI config to disk.
func saveCLIConfig(cfg CLIConfig) error {
	path, err := cliConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	data = append([]byte(cliConfigHeader), data...)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// remoteByDefault reports whether the saved config asks for remote reads.
func remoteByDefault() bool {
	cfg, err := loadCLIConfig()
	return err == nil && cfg.Remote
}

// getServerURL returns the server URL from env var, config, or default.
func getServerURL() string {
	if v := os.Getenv("PROSPECTOR_SERVER_URL"); v != "" {
		return v
	}
	cfg, err := loadCLIConfig()
	if err == nil && cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	return "http://localhost:8080"
}

// getAPIKey returns the API key from env var or config.
func getAPIKey() string {
	if v := os.Getenv("PROSPECTOR_API_KEY"); v != "" {
		return v
	}
	cfg, err := loadCLIConfig()
	if err == nil {
		return cfg.APIKey
	}
	return ""
}
