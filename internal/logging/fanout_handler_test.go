package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(noopHandler); !ok {
		t.Fatal("expected noopHandler when every handler is nil")
	}

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Fatalf("expected lone handler returned unwrapped, got %T", h)
	}
}

func TestFanoutHandlerRespectsPerHandlerLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(newFanoutHandler(info, debug))
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout enabled for debug")
	}

	logger.Debug("segment split", "dimension", "valence")
	logger.Info("rating stored", "dimension", "arousal")

	if strings.Contains(infoBuf.String(), "segment split") {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "rating stored") {
		t.Fatalf("info handler missed info record: %s", infoBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "segment split") || !strings.Contains(debugBuf.String(), "rating stored") {
		t.Fatalf("debug handler missed records: %s", debugBuf.String())
	}
}

func TestFanoutHandlerNoneEnabled(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected fanout disabled when no handler accepts info")
	}
}

func TestFanoutHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var a, b bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))

	logger := slog.New(h).With(FieldStudy, "demo").WithGroup("segment")
	logger.Info("boundary moved", "index", 2)

	for name, buf := range map[string]*bytes.Buffer{"first": &a, "second": &b} {
		out := buf.String()
		if !strings.Contains(out, `"study":"demo"`) {
			t.Fatalf("%s handler missing attrs: %s", name, out)
		}
		if !strings.Contains(out, `"segment":{"index":2}`) {
			t.Fatalf("%s handler missing group: %s", name, out)
		}
	}
}

func TestTeeLogger(t *testing.T) {
	var base, extra bytes.Buffer
	logger := TeeLogger(slog.New(slog.NewJSONHandler(&base, nil)), slog.NewJSONHandler(&extra, nil))
	logger.Info("participant registered")

	if !strings.Contains(base.String(), "participant registered") || !strings.Contains(extra.String(), "participant registered") {
		t.Fatalf("expected both outputs, got base=%q extra=%q", base.String(), extra.String())
	}

	var only bytes.Buffer
	TeeLogger(nil, slog.NewJSONHandler(&only, nil)).Info("nil base")
	if !strings.Contains(only.String(), "nil base") {
		t.Fatalf("expected output with nil base, got %q", only.String())
	}
}

type failingHandler struct{ err error }

func (f failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (f failingHandler) Handle(context.Context, slog.Record) error { return f.err }

func (f failingHandler) WithAttrs([]slog.Attr) slog.Handler { return f }

func (f failingHandler) WithGroup(string) slog.Handler { return f }

func TestFanoutHandlerKeepsDeliveringAfterFailure(t *testing.T) {
	diskFull := errors.New("disk full")
	closed := errors.New("file closed")
	var buf bytes.Buffer
	h := newFanoutHandler(failingHandler{err: diskFull}, slog.NewJSONHandler(&buf, nil), failingHandler{err: closed})

	err := slog.New(h).Handler().Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "backend offline", 0))
	if !errors.Is(err, diskFull) || !errors.Is(err, closed) {
		t.Fatalf("expected both failures reported, got %v", err)
	}
	if !strings.Contains(buf.String(), "backend offline") {
		t.Fatalf("expected healthy handler to receive the record, got %q", buf.String())
	}
}
