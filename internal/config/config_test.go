// internal/config/config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()

	// Create a valid test config file
	validConfigPath := filepath.Join(tempDir, "config.yaml")
	validConfig := `
server:
  name: "Test Server"
  port: 9090

schema:
  schemaOverrideURI: "file:///tmp/schema.json"
`
	if err := os.WriteFile(validConfigPath, []byte(validConfig), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Run("ValidConfig", func(t *testing.T) {
		cfg, err := LoadFromFile(validConfigPath)
		if err != nil {
			t.Fatalf("LoadFromFile() error = %v", err)
		}

		if cfg.Server.Name != "Test Server" {
			t.Errorf("Server.Name = %v, want %v", cfg.Server.Name, "Test Server")
		}
		if cfg.Server.Port != 9090 {
			t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, 9090)
		}
		if cfg.Schema.SchemaOverrideURI != "file:///tmp/schema.json" {
			t.Errorf("Schema.SchemaOverrideURI = %v, want %v", cfg.Schema.SchemaOverrideURI, "file:///tmp/schema.json")
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := LoadFromFile(filepath.Join(tempDir, "does_not_exist.yaml")); err == nil {
			t.Error("LoadFromFile() expected error for missing file, got nil")
		}
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		badPath := filepath.Join(tempDir, "bad.yaml")
		if err := os.WriteFile(badPath, []byte("server: [unclosed"), 0600); err != nil {
			t.Fatalf("Failed to write bad config: %v", err)
		}
		if _, err := LoadFromFile(badPath); err == nil {
			t.Error("LoadFromFile() expected error for invalid YAML, got nil")
		}
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SERVER_NAME", "")

	cfg := DefaultConfig()
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %v, want default 8000", cfg.Server.Port)
	}
	if cfg.Server.Name == "" {
		t.Error("Server.Name should have a default value")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Run("PortOverride", func(t *testing.T) {
		t.Setenv("PORT", "1234")
		cfg := DefaultConfig()
		if cfg.Server.Port != 1234 {
			t.Errorf("Server.Port = %v, want 1234 from PORT env", cfg.Server.Port)
		}
	})

	t.Run("InvalidPortIgnored", func(t *testing.T) {
		t.Setenv("PORT", "not-a-port")
		cfg := DefaultConfig()
		if cfg.Server.Port != 8000 {
			t.Errorf("Server.Port = %v, want default 8000 when PORT is invalid", cfg.Server.Port)
		}
	})

	t.Run("NameOverride", func(t *testing.T) {
		t.Setenv("SERVER_NAME", "Env Server")
		cfg := DefaultConfig()
		if cfg.Server.Name != "Env Server" {
			t.Errorf("Server.Name = %v, want 'Env Server'", cfg.Server.Name)
		}
	})

	t.Run("SchemaOverride", func(t *testing.T) {
		t.Setenv("PROMPTCLINIC_SCHEMA_OVERRIDE_URI", "file:///tmp/override.json")
		cfg := DefaultConfig()
		if cfg.Schema.SchemaOverrideURI != "file:///tmp/override.json" {
			t.Errorf("Schema.SchemaOverrideURI = %v, want env override", cfg.Schema.SchemaOverrideURI)
		}
	})
}
