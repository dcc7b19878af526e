package preflight

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loopctl/internal/config"
	"loopctl/internal/remote"
	"loopctl/internal/transport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckUploadSource(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(f, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckUploadSource(f); !result.Passed || !strings.Contains(result.Detail, "5 bytes") {
		t.Fatalf("expected pass, got %+v", result)
	}
	if result := CheckUploadSource(dir); result.Passed {
		t.Fatal("expected directory to fail")
	}
	if result := CheckUploadSource(filepath.Join(dir, "missing.mp4")); result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("expected missing file to fail, got %+v", result)
	}
}

func TestCheckWritableParent(t *testing.T) {
	dir := t.TempDir()
	existing := CheckWritableParent("lock", filepath.Join(dir, "console.lock"))
	if !existing.Passed || !strings.Contains(existing.Detail, "writable") {
		t.Fatalf("unexpected result: %+v", existing)
	}
	nested := CheckWritableParent("lock", filepath.Join(dir, "a", "b", "console.lock"))
	if !nested.Passed || !strings.Contains(nested.Detail, "will create") {
		t.Fatalf("unexpected result: %+v", nested)
	}
}

type stubProber struct {
	status remote.RunStatus
	err    error
}

func (s stubProber) Status(context.Context) (remote.RunStatus, error) {
	return s.status, s.err
}

func TestCheckService(t *testing.T) {
	ok := CheckService(context.Background(), "svc", stubProber{status: remote.RunStatus{Status: remote.StatusStreaming}})
	if !ok.Passed || ok.Detail != "Reachable (Streaming)" {
		t.Fatalf("unexpected result: %+v", ok)
	}

	timeout := CheckService(context.Background(), "svc", stubProber{err: context.DeadlineExceeded})
	if timeout.Passed || !strings.Contains(timeout.Detail, "timed out") {
		t.Fatalf("unexpected result: %+v", timeout)
	}

	status := CheckService(context.Background(), "svc", stubProber{err: &transport.Error{
		Kind:       transport.KindStatus,
		StatusCode: http.StatusServiceUnavailable,
		Message:    "busy",
	}})
	if status.Passed || !strings.Contains(status.Detail, "busy") {
		t.Fatalf("unexpected result: %+v", status)
	}

	other := CheckService(context.Background(), "svc", stubProber{err: errors.New("boom")})
	if other.Passed || other.Detail != "boom" {
		t.Fatalf("unexpected result: %+v", other)
	}
}

func TestRunAllSkipsServiceWithoutProber(t *testing.T) {
	cfg := config.Default()
	cfg.Console.LockPath = filepath.Join(t.TempDir(), "console.lock")
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "loopctl.log")

	results := RunAll(context.Background(), &cfg, nil)
	if len(results) != 2 {
		t.Fatalf("expected lock and log checks, got %+v", results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}

	results = RunAll(context.Background(), &cfg, stubProber{err: errors.New("down")})
	if len(results) != 3 || len(Failed(results)) != 1 {
		t.Fatalf("expected one failing service check, got %+v", results)
	}
}
