package campaign

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StoreConfig selects and configures the checkpoint store backend.
type StoreConfig struct {
	// Backend is one of "memory", "file", "sqlite", "postgres".
	Backend string `yaml:"backend"`

	// Path is the data directory (file backend) or database file (sqlite).
	Path string `yaml:"path,omitempty"`

	// DSN is the connection string for the postgres backend.
	DSN string `yaml:"dsn,omitempty"`
}

// Config carries the engine and server settings the CLI reads from a YAML
// file.
type Config struct {
	Store StoreConfig `yaml:"store"`

	// InterruptBefore lists node names the engine pauses in front of.
	InterruptBefore []string `yaml:"interrupt_before,omitempty"`

	// MaxFeedbackIterations caps the human revision loop. Zero means
	// unbounded.
	MaxFeedbackIterations int `yaml:"max_feedback_iterations,omitempty"`

	// APIKeyEnv names the environment variable holding the API key the
	// HTTP server requires from callers. Empty disables auth.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// Listen is the HTTP server bind address.
	Listen string `yaml:"listen,omitempty"`

	// LogsDir is where per-session node logs are written. Empty disables
	// node logging.
	LogsDir string `yaml:"logs_dir,omitempty"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() *Config {
	return &Config{
		Store:           StoreConfig{Backend: "memory"},
		InterruptBefore: []string{"reviewer"},
		Listen:          ":8080",
	}
}

// LoadConfig loads a Config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "", "memory", "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("postgres store requires a dsn")
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("sqlite store requires a path")
	}
	if c.MaxFeedbackIterations < 0 {
		return fmt.Errorf("max_feedback_iterations cannot be negative")
	}
	return nil
}

// InterruptNodes converts the configured interrupt names to NodeNames.
func (c *Config) InterruptNodes() []NodeName {
	nodes := make([]NodeName, 0, len(c.InterruptBefore))
	for _, name := range c.InterruptBefore {
		nodes = append(nodes, NodeName(name))
	}
	return nodes
}
