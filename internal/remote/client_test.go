package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loopctl/internal/remote"
	"loopctl/internal/transport"
)

func newClient(t *testing.T, handler http.HandlerFunc) *remote.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return remote.NewClient(transport.New(srv.URL))
}

func TestClientReadsState(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			_, _ = io.WriteString(w, `{"running":false,"status":"Stopped","start_time":null,"next_restart":null}`)
		case "/config":
			_, _ = io.WriteString(w, `{}`)
		case "/videos":
			_, _ = io.WriteString(w, `[{"name":"a.mp4","path":"videos/a.mp4","size_mb":12.5}]`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	status, err := client.Status(ctx)
	if err != nil || status.Status != remote.StatusStopped {
		t.Fatalf("unexpected status %+v %v", status, err)
	}
	cfg, err := client.Config(ctx)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.PerformanceProfile != "" {
		t.Fatalf("expected raw config without defaults, got %q", cfg.PerformanceProfile)
	}
	videos, err := client.Videos(ctx)
	if err != nil || len(videos) != 1 || videos[0].SizeMB != 12.5 {
		t.Fatalf("unexpected videos %+v %v", videos, err)
	}
}

func TestClientCommandsAndFailures(t *testing.T) {
	var deletedPath string
	var saved map[string]any
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/start":
			_, _ = io.WriteString(w, `{"message":"Stream started"}`)
		case r.URL.Path == "/stop":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"detail":"Stream not running"}`)
		case r.URL.Path == "/config" && r.Method == http.MethodPost:
			_ = json.NewDecoder(r.Body).Decode(&saved)
			_, _ = io.WriteString(w, `{"error":"disk full"}`)
		case strings.HasPrefix(r.URL.Path, "/videos/"):
			deletedPath = r.URL.EscapedPath()
			_, _ = io.WriteString(w, `{"status":"deleted"}`)
		case r.URL.Path == "/upload":
			_, _ = io.WriteString(w, `{"info":"file 'b.mp4' saved at 'videos/b.mp4'","path":"videos/b.mp4"}`)
		}
	})
	ctx := context.Background()

	msg, err := client.Start(ctx)
	if err != nil || msg != "Stream started" {
		t.Fatalf("unexpected start: %q %v", msg, err)
	}

	_, err = client.Stop(ctx)
	if !transport.IsStatus(err, http.StatusBadRequest) || err.Error() != "Stream not running (HTTP 400)" {
		t.Fatalf("unexpected stop error: %v", err)
	}

	_, err = client.SaveConfig(ctx, remote.StreamConfig{StreamKey: "k", VideoFile: remote.StringPtr("videos/a.mp4")})
	var domainErr *remote.DomainError
	if !errors.As(err, &domainErr) || domainErr.Message != "disk full" {
		t.Fatalf("expected domain error, got %v", err)
	}
	if saved["stream_key"] != "k" || saved["video_file"] != "videos/a.mp4" {
		t.Fatalf("unexpected saved payload: %v", saved)
	}

	if err := client.DeleteVideo(ctx, "loop one.mp4"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deletedPath != "/videos/loop%20one.mp4" {
		t.Fatalf("expected escaped path, got %q", deletedPath)
	}
	if err := client.DeleteVideo(ctx, "../x"); !errors.Is(err, remote.ErrInvalidVideoName) {
		t.Fatalf("expected invalid name error, got %v", err)
	}

	result, err := client.Upload(ctx, "b.mp4", strings.NewReader("data"))
	if err != nil || result.Text() != "file 'b.mp4' saved at 'videos/b.mp4'" {
		t.Fatalf("unexpected upload: %+v %v", result, err)
	}
}

func TestClientReportsDecodeMismatch(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"name":"not a list"}`)
	})
	_, err := client.Videos(context.Background())
	te, ok := transport.AsError(err)
	if !ok || te.Kind != transport.KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
}
