// Package config handles loading, parsing, and validating application configuration.
// It defines the structure for configuration settings, provides default values,
// loads settings from files (e.g., YAML), and applies overrides from environment variables.
// file: internal/config/config.go.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/logging"
	"gopkg.in/yaml.v3"
)

// ServiceID is the canonical service identifier reported by liveness endpoints
// and the MCP serverInfo block.
const ServiceID = "prompt-clinic-mcp"

// ServerConfig contains settings specific to the MCP server component.
type ServerConfig struct {
	// Name is the human-readable name for the server, potentially displayed in logs or client UIs.
	Name string `yaml:"name"`
	// Port is the network port the server listens on when using HTTP transport. Ignored for stdio.
	Port int `yaml:"port"`
}

// SchemaConfig holds settings related to JSON schema loading and validation.
type SchemaConfig struct {
	// SchemaOverrideURI allows specifying an external source (file:// or http(s)://)
	// for the message schema, overriding the default embedded schema. If empty, the
	// embedded schema is used. Loading failure from a specified URI is a fatal error
	// during server startup.
	SchemaOverrideURI string `yaml:"schemaOverrideURI,omitempty"`
}

// Config is the root configuration structure for the prompt-clinic application.
type Config struct {
	// Server holds general server settings (name, port).
	Server ServerConfig `yaml:"server"`
	// Schema holds configuration for loading the message validation schema.
	Schema SchemaConfig `yaml:"schema"`
}

// DefaultConfig returns a configuration populated with default values.
// The HTTP port defaults to 8000 and can be overridden with the PORT
// environment variable.
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Name: "Prompt Clinic",
			Port: 8000,
		},
		Schema: SchemaConfig{
			// SchemaOverrideURI is empty by default, meaning use embedded schema.
		},
	}
	applyEnvironmentOverrides(cfg, logging.GetLogger("config_default"))
	return cfg
}

// LoadFromFile loads configuration from the specified YAML file path.
// It starts with default values, merges the values from the YAML file,
// and finally applies any environment variable overrides.
// Supports '~' expansion in the file path.
func LoadFromFile(path string) (*Config, error) {
	// Expand ~ character in path to user's home directory.
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get home directory to expand path")
		}
		path = filepath.Join(homeDir, path[1:])
	}

	// #nosec G304 -- Path comes from command-line flag or default, considered trusted input.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", path)
	}

	// Start with default configuration values.
	config := DefaultConfig()

	// Parse the YAML data, overriding defaults.
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file YAML: %s", path)
	}

	// Apply environment variables, potentially overriding values from the file.
	applyEnvironmentOverrides(config, logging.GetLogger("config_load"))
	return config, nil
}

// applyEnvironmentOverrides applies configuration overrides from environment variables.
// Environment variables take precedence over values set in configuration files or defaults.
func applyEnvironmentOverrides(config *Config, logger logging.Logger) {
	// PORT selects the HTTP listening port. This matches the deployment contract
	// of container platforms that inject PORT at runtime.
	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 && port < 65536 {
			logger.Debug("Overriding server port from environment.", "envVar", "PORT", "value", port)
			config.Server.Port = port
		} else {
			logger.Warn("Invalid PORT environment variable ignored.", "value", portStr, "error", err)
		}
	}

	if serverName := os.Getenv("SERVER_NAME"); serverName != "" {
		logger.Debug("Overriding server name from environment.", "envVar", "SERVER_NAME", "value", serverName)
		config.Server.Name = serverName
	}

	// Schema override.
	if schemaOverride := os.Getenv("PROMPTCLINIC_SCHEMA_OVERRIDE_URI"); schemaOverride != "" {
		logger.Debug("Overriding schema source from environment.", "envVar", "PROMPTCLINIC_SCHEMA_OVERRIDE_URI", "value", schemaOverride)
		config.Schema.SchemaOverrideURI = schemaOverride
	}
}
