package config

import (
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBind(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBind() error {
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind: invalid address %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.ProgressWeight <= 0 || c.Render.ProgressWeight >= 1 {
		return fmt.Errorf("render.progress_weight: must be between 0 and 1 exclusive, got %v", c.Render.ProgressWeight)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
