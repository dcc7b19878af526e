package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"loopctl/internal/remote"
	"loopctl/internal/statesync"
)

func TestStatusCommandRendersSnapshot(t *testing.T) {
	env := setupCLITestEnv(t)
	env.srv.SetConfig(fullConfig("videos/a.mp4"))
	env.srv.AddVideo("a.mp4", 2048)

	out, err := runCLI(t, env, "", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, remote.StatusStopped)
	requireContains(t, out, "VPS Optimized")
	requireContains(t, out, "videos/a.mp4")
	requireContains(t, out, "1 uploaded")
	requireContains(t, out, env.srv.URL())
}

func TestStatusCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	env.srv.SetConfig(fullConfig("videos/a.mp4"))
	env.srv.Fail(http.MethodGet, "/videos", http.StatusInternalServerError, "disk error")

	out, err := runCLI(t, env, "", "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var view statusView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if view.Status == nil || view.Status.Running {
		t.Fatalf("unexpected status: %+v", view.Status)
	}
	if view.PerformanceProfile != string(remote.ProfileVPSOptimized) {
		t.Fatalf("expected default profile, got %q", view.PerformanceProfile)
	}
	health := view.Health[statesync.SliceVideos]
	if health.ConsecutiveFailures != 1 || !strings.Contains(health.LastError, "disk error") {
		t.Fatalf("expected degraded videos health, got %+v", health)
	}
}

func TestStatusCommandFailsWhenUnreachable(t *testing.T) {
	env := setupCLITestEnv(t)
	env.srv.Close()

	_, err := runCLI(t, env, "", "status")
	if err == nil || !strings.Contains(err.Error(), "fetch status") {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestStartAndStopCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "", "start")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Command: Start - Stream started")

	out, err = runCLI(t, env, "", "start")
	var reported *reportedError
	if !errors.As(err, &reported) {
		t.Fatalf("expected reported failure, got %v", err)
	}
	requireContains(t, reported.Error(), "Stream is already running")
	requireContains(t, out, "Error starting stream:")

	out, err = runCLI(t, env, "", "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Command: Stop - Stream stopped")
}

func TestURLFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	other := setupCLITestEnv(t)

	if _, err := runCLI(t, env, "", "--url", other.srv.URL(), "start"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if other.srv.Count(http.MethodPost, "/start") != 1 || env.srv.Count(http.MethodPost, "/start") != 0 {
		t.Fatal("expected --url to select the service")
	}
}

func TestRestartCountdown(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	next := remote.Timestamp{Time: now.Add(90 * time.Minute)}
	if got := restartCountdown(next, now); !strings.HasSuffix(got, "(in 1h30m0s)") {
		t.Fatalf("unexpected countdown %q", got)
	}
	past := remote.Timestamp{Time: now.Add(-time.Minute)}
	if got := restartCountdown(past, now); !strings.HasSuffix(got, "(due)") {
		t.Fatalf("unexpected countdown %q", got)
	}
	if got := restartCountdown(remote.Timestamp{}, now); got != "" {
		t.Fatalf("expected empty countdown, got %q", got)
	}
}

func TestRunStatusKind(t *testing.T) {
	tests := []struct {
		status remote.RunStatus
		want   statusKind
	}{
		{remote.RunStatus{Running: true, Status: remote.StatusStreaming}, statusOK},
		{remote.RunStatus{Status: remote.StatusStopped}, statusInfo},
		{remote.RunStatus{Status: remote.StatusConfigError}, statusError},
		{remote.RunStatus{Running: true, Status: remote.StatusPaused}, statusWarn},
		{remote.RunStatus{Running: true, Status: "Warming up"}, statusOK},
	}
	for _, tt := range tests {
		if got := runStatusKind(tt.status); got != tt.want {
			t.Errorf("runStatusKind(%q) = %v, want %v", tt.status.Status, got, tt.want)
		}
	}
}
