package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"loopctl/internal/activity"
	"loopctl/internal/metrics"
	"loopctl/internal/remote"
)

func TestObservePollTracksFailures(t *testing.T) {
	m := metrics.New()

	m.ObservePoll("status", errors.New("refused"), 10*time.Millisecond)
	m.ObservePoll("status", errors.New("refused"), 10*time.Millisecond)
	if got := testutil.ToFloat64(m.ConsecutiveFailures.WithLabelValues("status")); got != 2 {
		t.Fatalf("expected 2 consecutive failures, got %v", got)
	}

	m.ObservePoll("status", nil, 5*time.Millisecond)
	if got := testutil.ToFloat64(m.ConsecutiveFailures.WithLabelValues("status")); got != 0 {
		t.Fatalf("expected reset after success, got %v", got)
	}
	if got := testutil.ToFloat64(m.Polls.WithLabelValues("status", "error")); got != 2 {
		t.Fatalf("expected 2 error polls, got %v", got)
	}
	if got := testutil.ToFloat64(m.LastPollSuccess.WithLabelValues("status")); got <= 0 {
		t.Fatalf("expected last success timestamp, got %v", got)
	}
}

func TestCommandAndStateGauges(t *testing.T) {
	m := metrics.New()
	m.ObserveCommand("start", true)
	m.ObserveCommand("start", false)
	m.ObserveStatus(remote.RunStatus{Running: true})
	m.ObserveUploading(true)

	log := activity.New(5)
	log.AddSink(m)
	log.Append("Command: Start - ok")

	if got := testutil.ToFloat64(m.Commands.WithLabelValues("start", "error")); got != 1 {
		t.Fatalf("unexpected error count: %v", got)
	}
	if testutil.ToFloat64(m.StreamRunning) != 1 || testutil.ToFloat64(m.Uploading) != 1 {
		t.Fatal("expected running and uploading gauges set")
	}
	if testutil.ToFloat64(m.ActivityEntries) != 1 {
		t.Fatal("expected one activity entry counted")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := metrics.New()
	m.ObserveCommand("stop", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `loopctl_commands_total{command="stop",result="success"} 1`) {
		t.Fatalf("expected command counter in exposition, got:\n%s", body)
	}
}
