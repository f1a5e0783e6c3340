// Package config provides unified configuration for chatbridge.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (CHATBRIDGE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for chatbridge.
type Config struct {
	Backend       BackendConfig       `yaml:"backend"`
	Template      TemplateConfig      `yaml:"template"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// BackendConfig describes the completions backend being adapted.
type BackendConfig struct {
	Name         string            `yaml:"name"`          // metrics/log label, default: "vllm"
	BaseURL      string            `yaml:"base_url"`      // required
	APIKey       string            `yaml:"api_key"`       // optional
	APIKeyFile   string            `yaml:"api_key_file"`  // _file variant for api_key
	Timeout      time.Duration     `yaml:"timeout"`       // default: 120s, not applied to streams
	DefaultModel string            `yaml:"default_model"` // used when a request has no model
	ModelMapping map[string]string `yaml:"model_mapping"` // requested name -> backend name
}

// TemplateConfig selects how chat messages are rendered into a prompt.
type TemplateConfig struct {
	Format       string `yaml:"format"`        // "chatml", "plain" or "custom", default: "chatml"
	Text         string `yaml:"text"`          // text/template source for format=custom
	TextFile     string `yaml:"text_file"`     // _file variant for text
	ResponseRole string `yaml:"response_role"` // default: "assistant"
}

// LoggingConfig holds log level and debug category settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // TRACE, DEBUG, INFO, WARN, ERROR; default: INFO
	Debug string `yaml:"debug"` // comma-separated debug categories
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // default: true
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			Name:    "vllm",
			Timeout: 120 * time.Second,
		},
		Template: TemplateConfig{
			Format:       "chatml",
			ResponseRole: "assistant",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
			},
		},
	}
}
