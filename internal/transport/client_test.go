package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loopctl/internal/services"
	"loopctl/internal/transport"
)

func TestDoSendsJSONAndReturnsBody(t *testing.T) {
	var gotBody map[string]any
	var gotType, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/config" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotType = r.Header.Get("Content-Type")
		gotID = r.Header.Get(transport.RequestIDHeader)
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"message":"saved"}`)
	}))
	defer srv.Close()

	client := transport.New(srv.URL+"/", transport.WithRequestIDs(func() string { return "fixed-id" }))
	raw, err := client.Do(context.Background(), http.MethodPost, "/config", transport.JSON(map[string]any{"stream_key": "abc"}))
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if string(raw) != `{"message":"saved"}` {
		t.Fatalf("unexpected body: %s", raw)
	}
	if gotType != "application/json" {
		t.Fatalf("unexpected content type: %q", gotType)
	}
	if gotID != "fixed-id" {
		t.Fatalf("unexpected request id: %q", gotID)
	}
	if gotBody["stream_key"] != "abc" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
}

func TestDoPrefersContextRequestID(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(transport.RequestIDHeader)
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	ctx := services.WithRequestID(context.Background(), "from-ctx")
	if _, err := transport.New(srv.URL).Do(ctx, http.MethodGet, "/status", nil); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if gotID != "from-ctx" {
		t.Fatalf("expected context request id, got %q", gotID)
	}
}

func TestDoStreamsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "loop.mp4" || string(data) != "frames" {
			t.Errorf("unexpected upload %q %q", header.Filename, data)
		}
		_, _ = io.WriteString(w, `{"info":"file 'loop.mp4' saved","path":"/videos/loop.mp4"}`)
	}))
	defer srv.Close()

	raw, err := transport.New(srv.URL).Do(context.Background(), http.MethodPost, "/upload", transport.Multipart("file", "loop.mp4", strings.NewReader("frames")))
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if !strings.Contains(string(raw), "loop.mp4") {
		t.Fatalf("unexpected body: %s", raw)
	}
}

func TestDoClassifiesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/detail":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"File not found"}`)
		case "/html":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `<html>bad gateway</html>`)
		case "/garbage":
			_, _ = io.WriteString(w, `not json`)
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()
	client := transport.New(srv.URL)
	ctx := context.Background()

	_, err := client.Do(ctx, http.MethodDelete, "/detail", nil)
	te, ok := transport.AsError(err)
	if !ok || te.Kind != transport.KindStatus || te.StatusCode != 404 || te.Message != "File not found" {
		t.Fatalf("unexpected status error: %#v", err)
	}
	if err.Error() != "File not found (HTTP 404)" {
		t.Fatalf("unexpected error text: %q", err.Error())
	}
	if !transport.IsStatus(err, http.StatusNotFound) {
		t.Fatal("expected IsStatus to match 404")
	}

	_, err = client.Do(ctx, http.MethodGet, "/html", nil)
	if te, ok := transport.AsError(err); !ok || te.Message != "" || err.Error() != "HTTP 502" {
		t.Fatalf("unexpected html error: %v", err)
	}

	_, err = client.Do(ctx, http.MethodGet, "/garbage", nil)
	if te, ok := transport.AsError(err); !ok || te.Kind != transport.KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}

	raw, err := client.Do(ctx, http.MethodDelete, "/empty", nil)
	if err != nil {
		t.Fatalf("expected empty 2xx body to succeed, got %v", err)
	}
	if string(raw) != "null" {
		t.Fatalf("expected null body, got %s", raw)
	}
}

func TestDoReportsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := transport.New(url).Do(context.Background(), http.MethodGet, "/status", nil)
	te, ok := transport.AsError(err)
	if !ok || te.Kind != transport.KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "service unreachable") {
		t.Fatalf("unexpected error text: %q", err.Error())
	}
}

func TestRelativePathsUseOrigin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	client := transport.New("", transport.WithOrigin(srv.URL))
	if client.Base() != "" {
		t.Fatalf("expected empty base, got %q", client.Base())
	}
	if _, err := client.Do(context.Background(), http.MethodGet, "/videos", nil); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}

	_, err := transport.New("").Do(context.Background(), http.MethodGet, "/videos", nil)
	if te, ok := transport.AsError(err); !ok || te.Kind != transport.KindRequest {
		t.Fatalf("expected request error without origin, got %v", err)
	}
}

type stubDoer struct {
	err error
}

func (s stubDoer) Do(*http.Request) (*http.Response, error) { return nil, s.err }

func TestWithHTTPClientOverridesDoer(t *testing.T) {
	sentinel := errors.New("offline")
	_, err := transport.New("http://stream.invalid", transport.WithHTTPClient(stubDoer{err: sentinel})).
		Do(context.Background(), http.MethodPost, "/start", nil)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
}
