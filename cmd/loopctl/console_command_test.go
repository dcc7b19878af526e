package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"loopctl/internal/testsupport"
)

func TestConsoleEditsWorkingCopyUntilSave(t *testing.T) {
	env := setupCLITestEnv(t)
	env.srv.SetConfig(fullConfig("videos/a.mp4"))
	env.srv.AddVideo("b.mp4", 10)

	input := strings.Join([]string{
		"set upload_pause=30",
		"select b.mp4",
		"config",
		"save",
		"start",
		"log",
		"quit",
	}, "\n") + "\n"
	out, err := runCLI(t, env, input, "console")
	if err != nil {
		t.Fatalf("console: %v", err)
	}
	requireContains(t, out, "Connected to "+env.srv.URL())
	requireContains(t, out, "Working configuration updated")
	requireContains(t, out, "Selected video source: videos/b.mp4")
	requireContains(t, out, "Configuration saved successfully.")
	requireContains(t, out, "Command: Start - Stream started")

	stored := env.srv.Config()
	if stored["upload_pause"] != float64(30) || stored["video_file"] != "videos/b.mp4" {
		t.Fatalf("unexpected stored config: %v", stored)
	}
	if got := env.srv.Count(http.MethodPost, "/config"); got != 1 {
		t.Fatalf("expected exactly one save, got %d", got)
	}
	if got := env.srv.Count(http.MethodGet, "/config"); got != 1 {
		t.Fatalf("expected config to be loaded once, got %d", got)
	}
}

func TestConsoleSelectWithoutSaveIsNotSent(t *testing.T) {
	env := setupCLITestEnv(t)
	env.srv.SetConfig(fullConfig("videos/a.mp4"))

	out, err := runCLI(t, env, "select /media/b.mp4\nquit\n", "console")
	if err != nil {
		t.Fatalf("console: %v", err)
	}
	requireContains(t, out, "Selected video source: /media/b.mp4")
	if env.srv.Count(http.MethodPost, "/config") != 0 {
		t.Fatal("select must not save")
	}
	if got := env.srv.Config()["video_file"]; got != "videos/a.mp4" {
		t.Fatalf("service config changed: %v", got)
	}
}

func TestConsoleRefusesSelectBeforeConfigLoads(t *testing.T) {
	env := setupCLITestEnv(t)
	env.srv.SetConfig(fullConfig("videos/a.mp4"))
	env.srv.Fail(http.MethodGet, "/config", http.StatusInternalServerError, "config unreadable")

	out, err := runCLI(t, env, "select videos/b.mp4\nsave\nquit\n", "console")
	if err != nil {
		t.Fatalf("console: %v", err)
	}
	requireContains(t, out, "error: configuration has not loaded yet")
	if strings.Contains(out, "Selected video source") {
		t.Fatalf("unexpected selection in output:\n%s", out)
	}
	if env.srv.Count(http.MethodPost, "/config") != 0 {
		t.Fatal("nothing may be saved before the config loads")
	}
	if got := env.srv.Config()["stream_key"]; got != "secret-key-1234" {
		t.Fatalf("service config changed: %v", got)
	}
}

func TestConsoleUploadAndConfirmedDelete(t *testing.T) {
	env := setupCLITestEnv(t)
	env.srv.SetConfig(fullConfig("videos/clip.mp4"))
	local := testsupport.WriteVideo(t, env.baseDir, "clip.mp4", 256)

	input := "upload " + local + "\ndelete clip.mp4\ny\nquit\n"
	out, err := runCLI(t, env, input, "console")
	if err != nil {
		t.Fatalf("console: %v", err)
	}
	requireContains(t, out, "Upload: ")
	requireContains(t, out, "Deleted video: clip.mp4")
	requireContains(t, out, "Warning: Deleted currently active video file.")
	if env.srv.HasVideo("clip.mp4") {
		t.Fatal("expected delete to reach the service")
	}
}

func TestConsoleReportsUsageErrorsAndContinues(t *testing.T) {
	env := setupCLITestEnv(t)
	env.srv.SetConfig(fullConfig("videos/a.mp4"))

	out, err := runCLI(t, env, "frobnicate\nset\nlog\n", "console")
	if err != nil {
		t.Fatalf("console: %v", err)
	}
	requireContains(t, out, `unknown command "frobnicate"`)
	requireContains(t, out, "usage: set key=value...")
	requireContains(t, out, "No activity yet")
}

func TestConsoleRefusesSecondSession(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(filepath.Dir(env.cfg.Console.LockPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	held := flock.New(env.cfg.Console.LockPath)
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("take lock: %v", err)
	}
	defer held.Unlock()

	_, err = runCLI(t, env, "quit\n", "console")
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestReadLinesStopsWhenContextEnds(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	go func() { _, _ = io.WriteString(pw, "status\n") }()

	ctx, cancel := context.WithCancel(context.Background())
	lines := readLines(ctx, pr)
	// Let the reader block on handing over the line nobody will take.
	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)

	select {
	case line, ok := <-lines:
		if ok {
			t.Fatalf("expected channel closed after cancel, got %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reader still blocked after cancel")
	}
}
