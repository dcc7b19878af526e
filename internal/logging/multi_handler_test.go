package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestCombineHandlersDropsNil(t *testing.T) {
	if _, ok := combineHandlers(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if combineHandlers(nil, inner) != inner {
		t.Fatal("expected the single non-nil handler unwrapped")
	}
}

func TestMultiHandlerRoutesByLevel(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	warn := slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn})
	h := combineHandlers(info, warn)

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be disabled for both handlers")
	}
	logger := slog.New(h)
	logger.Info("poll recovered")
	if infoBuf.Len() == 0 || warnBuf.Len() != 0 {
		t.Fatalf("info routed wrong: info=%q warn=%q", infoBuf.String(), warnBuf.String())
	}
	logger.Warn("poll failed")
	if !bytes.Contains(warnBuf.Bytes(), []byte("poll failed")) {
		t.Fatal("expected warning in both outputs")
	}
}

func TestMultiHandlerCarriesAttrsAndGroups(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := combineHandlers(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))
	logger := slog.New(h).With(slog.String(FieldComponent, "transport")).WithGroup("http")
	logger.Info("request", slog.String("method", "GET"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"component":"transport"`)) || !bytes.Contains(buf.Bytes(), []byte(`"http":{"method":"GET"}`)) {
			t.Fatalf("output %d missing attrs or group: %s", i, buf.String())
		}
	}
}
