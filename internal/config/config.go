package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Remote describes how to reach the streaming service control API.
type Remote struct {
	// Mode selects endpoint resolution: "cohosted", "dev", or "explicit".
	Mode string `toml:"mode"`
	// Host is the service host used in dev mode.
	Host string `toml:"host"`
	// ControlPort is the service port used in dev mode. Default: 5000
	ControlPort int `toml:"control_port"`
	// BaseURL is used verbatim in explicit mode.
	BaseURL string `toml:"base_url"`
	// CohostedOrigin is the origin relative paths are joined onto in cohosted mode.
	CohostedOrigin string `toml:"cohosted_origin"`
	// RequestTimeout bounds each HTTP call in seconds. Zero leaves calls unbounded.
	RequestTimeout int `toml:"request_timeout"`
}

// Sync contains polling configuration for the state synchronizer.
type Sync struct {
	PollIntervalMillis int    `toml:"poll_interval_ms"`
	Ordering           string `toml:"ordering"`
}

// Activity contains configuration for the local activity log.
type Activity struct {
	Capacity int `toml:"capacity"`
}

// Commands toggles optional command dispatcher behaviour.
type Commands struct {
	RollbackFailedSave bool `toml:"rollback_failed_save"`
	ClearDeletedSource bool `toml:"clear_deleted_source"`
}

// Console contains configuration for the interactive console.
type Console struct {
	LockPath string `toml:"lock_path"`
}

// Metrics contains configuration for the Prometheus exporter.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for loopctl.
//
// Configuration sections by subsystem:
//   - Remote: endpoint resolution and HTTP timeouts
//   - Sync: poll cadence and response ordering
//   - Activity: activity log capacity
//   - Commands: opt-in dispatcher behaviour
//   - Console: interactive session lock
//   - Metrics: optional Prometheus listener
//   - Logging: log format, level, and file output
type Config struct {
	Remote   Remote   `toml:"remote"`
	Sync     Sync     `toml:"sync"`
	Activity Activity `toml:"activity"`
	Commands Commands `toml:"commands"`
	Console  Console  `toml:"console"`
	Metrics  Metrics  `toml:"metrics"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("loopctl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// PollInterval returns the synchronizer poll cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Sync.PollIntervalMillis) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout, or zero when unbounded.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Remote.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
