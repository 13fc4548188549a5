// Package config loads runtime configuration for prospector.
//
// Values come from defaults, a YAML secrets file, PROSPECTOR_* environment
// variables and, for the warehouse password only, the OS keyring. Later
// sources win.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// KeyringService groups prospector secrets in the OS keychain.
const KeyringService = "prospector"

// Warehouse drivers.
const (
	DriverSQLite    = "sqlite3"
	DriverSnowflake = "snowflake"
)

// SnowflakeConfig holds hosted warehouse credentials.
type SnowflakeConfig struct {
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Account   string `yaml:"account"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Role      string `yaml:"role"`
	Table     string `yaml:"table"`
}

// AnalystConfig holds settings for the hosted analyst endpoint.
type AnalystConfig struct {
	URL           string  `yaml:"url"`
	Token         string  `yaml:"token"`
	SemanticModel string  `yaml:"semantic_model"`
	RPS           float64 `yaml:"rps"`
}

// Configured returns true if the analyst endpoint can be called.
func (c AnalystConfig) Configured() bool {
	return c.URL != "" && c.Token != ""
}

// Config holds runtime configuration.
type Config struct {
	DevMode bool
	Port    int
	DBPath  string // local SQLite (api keys, local company seed)
	Driver  string // sqlite3 or snowflake
	Table   string

	Snowflake SnowflakeConfig
	Analyst   AnalystConfig
}

// secretsFile mirrors the layout of the hosted app secrets.
type secretsFile struct {
	Snowflake SnowflakeConfig `yaml:"snowflake"`
	Analyst   AnalystConfig   `yaml:"analyst"`
}

// DefaultSecretsPath returns ~/.config/prospector/secrets.yaml.
func DefaultSecretsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "prospector", "secrets.yaml"), nil
}

// Load builds the configuration.
func Load() (Config, error) {
	cfg := Config{
		Port:   8080,
		Driver: DriverSQLite,
		Table:  "COMPANIES",
		Analyst: AnalystConfig{
			RPS: 1,
		},
	}

	path := os.Getenv("PROSPECTOR_SECRETS")
	if path == "" {
		var err error
		path, err = DefaultSecretsPath()
		if err != nil {
			return Config{}, err
		}
	}

	secrets, err := loadSecrets(path)
	if err != nil {
		return Config{}, err
	}
	cfg.Snowflake = secrets.Snowflake
	if secrets.Analyst.URL != "" {
		cfg.Analyst.URL = secrets.Analyst.URL
	}
	if secrets.Analyst.Token != "" {
		cfg.Analyst.Token = secrets.Analyst.Token
	}
	if secrets.Analyst.SemanticModel != "" {
		cfg.Analyst.SemanticModel = secrets.Analyst.SemanticModel
	}
	if secrets.Analyst.RPS > 0 {
		cfg.Analyst.RPS = secrets.Analyst.RPS
	}
	if cfg.Snowflake.Table != "" {
		cfg.Table = cfg.Snowflake.Table
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Driver == DriverSnowflake && cfg.Snowflake.Password == "" {
		pw, err := WarehousePassword(cfg.Snowflake)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return Config{}, fmt.Errorf("reading warehouse password from keyring: %w", err)
		}
		cfg.Snowflake.Password = pw
	}

	return cfg, nil
}

// loadSecrets reads the secrets file. A missing file is not an error.
func loadSecrets(path string) (secretsFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return secretsFile{}, nil
	}
	if err != nil {
		return secretsFile{}, fmt.Errorf("reading secrets: %w", err)
	}

	var s secretsFile
	if err := yaml.Unmarshal(data, &s); err != nil {
		return secretsFile{}, fmt.Errorf("parsing secrets %s: %w", path, err)
	}
	return s, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PROSPECTOR_DEV_MODE"); v != "" {
		cfg.DevMode = v == "true"
	}
	if v := os.Getenv("PROSPECTOR_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid PROSPECTOR_PORT %q", v)
		}
		cfg.Port = port
	}
	if v := os.Getenv("PROSPECTOR_ANALYST_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps <= 0 {
			return fmt.Errorf("invalid PROSPECTOR_ANALYST_RPS %q", v)
		}
		cfg.Analyst.RPS = rps
	}

	envString(&cfg.DBPath, "PROSPECTOR_DB")
	envString(&cfg.Table, "PROSPECTOR_TABLE")
	envString(&cfg.Snowflake.User, "PROSPECTOR_SNOWFLAKE_USER")
	envString(&cfg.Snowflake.Password, "PROSPECTOR_SNOWFLAKE_PASSWORD")
	envString(&cfg.Snowflake.Account, "PROSPECTOR_SNOWFLAKE_ACCOUNT")
	envString(&cfg.Snowflake.Warehouse, "PROSPECTOR_SNOWFLAKE_WAREHOUSE")
	envString(&cfg.Snowflake.Database, "PROSPECTOR_SNOWFLAKE_DATABASE")
	envString(&cfg.Snowflake.Schema, "PROSPECTOR_SNOWFLAKE_SCHEMA")
	envString(&cfg.Snowflake.Role, "PROSPECTOR_SNOWFLAKE_ROLE")
	envString(&cfg.Analyst.URL, "PROSPECTOR_ANALYST_URL")
	envString(&cfg.Analyst.Token, "PROSPECTOR_ANALYST_TOKEN")
	envString(&cfg.Analyst.SemanticModel, "PROSPECTOR_ANALYST_MODEL")

	if cfg.Snowflake.Account != "" {
		cfg.Driver = DriverSnowflake
	}
	if v := os.Getenv("PROSPECTOR_DRIVER"); v != "" {
		switch v {
		case DriverSQLite, DriverSnowflake:
			cfg.Driver = v
		default:
			return fmt.Errorf("unknown PROSPECTOR_DRIVER %q (sqlite3|snowflake)", v)
		}
	}

	return nil
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
