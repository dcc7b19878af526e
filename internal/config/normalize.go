package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeRemote()
	c.normalizeSync()
	if c.Activity.Capacity <= 0 {
		c.Activity.Capacity = defaultActivityCapacity
	}
	if err := c.normalizeConsole(); err != nil {
		return err
	}
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	return c.normalizeLogging()
}

func (c *Config) normalizeRemote() {
	if c.Remote.BaseURL == "" {
		if value, ok := os.LookupEnv("LOOPCTL_BASE_URL"); ok && strings.TrimSpace(value) != "" {
			c.Remote.BaseURL = value
			c.Remote.Mode = ModeExplicit
		}
	}
	if value, ok := os.LookupEnv("LOOPCTL_HOST"); ok && strings.TrimSpace(value) != "" {
		c.Remote.Host = value
		if c.Remote.Mode == "" || c.Remote.Mode == ModeCohosted {
			c.Remote.Mode = ModeDev
		}
	}

	c.Remote.Mode = strings.ToLower(strings.TrimSpace(c.Remote.Mode))
	if c.Remote.Mode == "" {
		c.Remote.Mode = defaultRemoteMode
	}
	c.Remote.Host = strings.TrimSpace(c.Remote.Host)
	if c.Remote.Host == "" {
		c.Remote.Host = defaultRemoteHost
	}
	if c.Remote.ControlPort == 0 {
		c.Remote.ControlPort = defaultControlPort
	}
	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	c.Remote.CohostedOrigin = strings.TrimRight(strings.TrimSpace(c.Remote.CohostedOrigin), "/")
	if c.Remote.CohostedOrigin == "" {
		c.Remote.CohostedOrigin = defaultCohostedOrigin
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.PollIntervalMillis == 0 {
		c.Sync.PollIntervalMillis = defaultPollIntervalMillis
	}
	c.Sync.Ordering = strings.ToLower(strings.TrimSpace(c.Sync.Ordering))
	if c.Sync.Ordering == "" {
		c.Sync.Ordering = defaultOrdering
	}
}

func (c *Config) normalizeConsole() error {
	if strings.TrimSpace(c.Console.LockPath) == "" {
		c.Console.LockPath = defaultConsoleLockPath
	}
	var err error
	if c.Console.LockPath, err = expandPath(c.Console.LockPath); err != nil {
		return fmt.Errorf("console.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) == "" {
		c.Logging.File = ""
		return nil
	}
	var err error
	if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}
