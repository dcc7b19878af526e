package testsupport

import (
	"path/filepath"
	"testing"

	"loopctl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config pointed at baseURL in explicit mode, with the
// console lock inside a per-test temp directory.
func NewConfig(t testing.TB, baseURL string, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Remote.Mode = config.ModeExplicit
	cfgVal.Remote.BaseURL = baseURL
	cfgVal.Sync.PollIntervalMillis = 100
	cfgVal.Console.LockPath = filepath.Join(base, "console.lock")
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOrdering overrides the response ordering policy.
func WithOrdering(ordering string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.Ordering = ordering
	}
}

// WithRollbackOnFailedSave enables restoring the previous config after a rejected save.
func WithRollbackOnFailedSave() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Commands.RollbackFailedSave = true
	}
}

// WithClearDeletedSource enables clearing video_file when the active source is deleted.
func WithClearDeletedSource() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Commands.ClearDeletedSource = true
	}
}
