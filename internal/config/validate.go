package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if c.Activity.Capacity <= 0 {
		return errors.New("activity.capacity must be positive")
	}
	return c.validateLogging()
}

func (c *Config) validateRemote() error {
	switch c.Remote.Mode {
	case ModeCohosted:
		if err := validateOrigin("remote.cohosted_origin", c.Remote.CohostedOrigin); err != nil {
			return err
		}
	case ModeDev:
		if c.Remote.ControlPort < 1 || c.Remote.ControlPort > 65535 {
			return fmt.Errorf("remote.control_port must be between 1 and 65535, got %d", c.Remote.ControlPort)
		}
		if strings.ContainsAny(c.Remote.Host, "/ ") {
			return fmt.Errorf("remote.host must be a bare host name, got %q", c.Remote.Host)
		}
	case ModeExplicit:
		if c.Remote.BaseURL == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("remote.base_url is required in explicit mode. Set LOOPCTL_BASE_URL or edit %s (create with 'loopctl config init')", defaultPath)
		}
		if err := validateOrigin("remote.base_url", c.Remote.BaseURL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("remote.mode: unsupported value %q (want cohosted, dev, or explicit)", c.Remote.Mode)
	}
	if c.Remote.RequestTimeout < 0 {
		return errors.New("remote.request_timeout must be zero or positive")
	}
	return nil
}

func validateOrigin(field, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", field, value)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.PollIntervalMillis < 100 {
		return fmt.Errorf("sync.poll_interval_ms must be at least 100, got %d", c.Sync.PollIntervalMillis)
	}
	switch c.Sync.Ordering {
	case OrderingLastResolved, OrderingLastIssued:
	default:
		return fmt.Errorf("sync.ordering: unsupported value %q (want %s or %s)", c.Sync.Ordering, OrderingLastResolved, OrderingLastIssued)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
