package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"loopctl/internal/config"
	"loopctl/internal/testsupport"
)

type cliTestEnv struct {
	srv        *testsupport.Remote
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("LOOPCTL_BASE_URL", "")
	t.Setenv("LOOPCTL_HOST", "")

	srv := testsupport.NewRemote(t)
	cfg := testsupport.NewConfig(t, srv.URL(), opts...)
	configPath := filepath.Join(base, "loopctl.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		srv:        srv,
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// runCLI executes the command tree with stdin fed from input.
func runCLI(t *testing.T, env *cliTestEnv, input string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func fullConfig(videoFile string) map[string]any {
	return map[string]any{
		"stream_key":      "secret-key-1234",
		"rtmp_url":        "rtmp://a.example/live",
		"stream_duration": 3600,
		"upload_pause":    60,
		"video_file":      videoFile,
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
