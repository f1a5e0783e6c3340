package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rhuss/chatbridge/pkg/debug"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, CHATBRIDGE_CONFIG env, ./config.yaml, /etc/chatbridge/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log(debug.Config, "loaded config file", "path", filePath)
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. CHATBRIDGE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/chatbridge/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("CHATBRIDGE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/chatbridge/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
// Unknown fields are rejected so typos do not go unnoticed.
func loadYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides maps CHATBRIDGE_* environment variables to config fields.
// Malformed values are logged and ignored.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHATBRIDGE_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("CHATBRIDGE_BACKEND_NAME"); v != "" {
		cfg.Backend.Name = v
	}
	if v := os.Getenv("CHATBRIDGE_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("CHATBRIDGE_MODEL"); v != "" {
		cfg.Backend.DefaultModel = v
	}
	if v := os.Getenv("CHATBRIDGE_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		} else {
			slog.Warn("ignoring invalid CHATBRIDGE_BACKEND_TIMEOUT", "value", v, "error", err)
		}
	}
	if v := os.Getenv("CHATBRIDGE_MODEL_MAPPING"); v != "" {
		mapping, err := parseModelMappingJSON(v)
		if err == nil && len(mapping) > 0 {
			cfg.Backend.ModelMapping = mapping
		} else if err != nil {
			slog.Warn("ignoring invalid CHATBRIDGE_MODEL_MAPPING", "error", err)
		}
	}
	if v := os.Getenv("CHATBRIDGE_TEMPLATE"); v != "" {
		cfg.Template.Format = v
	}
	if v := os.Getenv("CHATBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CHATBRIDGE_DEBUG"); v != "" {
		cfg.Logging.Debug = v
	}
	if v := os.Getenv("CHATBRIDGE_METRICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Observability.Metrics.Enabled = enabled
		}
	}
}

// parseModelMappingJSON parses a JSON object of model name mappings.
func parseModelMappingJSON(jsonStr string) (map[string]string, error) {
	var mapping map[string]string
	if err := json.Unmarshal([]byte(jsonStr), &mapping); err != nil {
		return nil, fmt.Errorf("parsing model mapping JSON: %w", err)
	}
	return mapping, nil
}

// resolveFileReferences reads _file fields and populates the corresponding
// value fields when those are empty.
func resolveFileReferences(cfg *Config) error {
	// backend.api_key_file -> backend.api_key
	if cfg.Backend.APIKeyFile != "" && cfg.Backend.APIKey == "" {
		val, err := readSecretFile(cfg.Backend.APIKeyFile)
		if err != nil {
			return fmt.Errorf("backend.api_key_file: %w", err)
		}
		cfg.Backend.APIKey = val
	}

	// template.text_file -> template.text, whitespace kept.
	if cfg.Template.TextFile != "" && cfg.Template.Text == "" {
		data, err := os.ReadFile(cfg.Template.TextFile)
		if err != nil {
			return fmt.Errorf("template.text_file: %w", err)
		}
		cfg.Template.Text = string(data)
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
