package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	// backend.base_url is required and must be an http(s) URL.
	if c.Backend.BaseURL == "" {
		errs = append(errs, fmt.Errorf("backend.base_url is required"))
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.base_url must be an http or https URL, got %q", c.Backend.BaseURL))
	}

	if c.Backend.Timeout < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout must be >= 0, got %s", c.Backend.Timeout))
	}

	switch strings.ToLower(c.Template.Format) {
	case "chatml", "plain":
		// valid
	case "custom":
		if c.Template.Text == "" && c.Template.TextFile == "" {
			errs = append(errs, fmt.Errorf("template.text or template.text_file is required when template.format is \"custom\""))
		}
	default:
		errs = append(errs, fmt.Errorf("template.format must be \"chatml\", \"plain\" or \"custom\", got %q", c.Template.Format))
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of TRACE, DEBUG, INFO, WARN, ERROR, got %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}
