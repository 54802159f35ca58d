package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audiorating/internal/config"
	"audiorating/internal/logging"
)

func TestNewFromConfigWritesJSONCopy(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "debug"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("study synced", logging.Study("demo"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "audiorating.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json log line %q: %v", content, err)
	}
	if entry["msg"] != "study synced" || entry["study"] != "demo" || entry["level"] != "debug" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerCallerOnlyAtDebug(t *testing.T) {
	cases := []struct {
		level      string
		wantCaller bool
	}{
		{level: "info", wantCaller: false},
		{level: "debug", wantCaller: true},
	}
	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			logPath := filepath.Join(t.TempDir(), "console.log")
			logger, err := logging.New(logging.Options{
				Format:           "console",
				Level:            tc.level,
				OutputPaths:      []string{logPath},
				ErrorOutputPaths: []string{logPath},
			})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			logger.Info("caller check")

			content, err := os.ReadFile(logPath)
			if err != nil {
				t.Fatalf("read log file: %v", err)
			}
			if got := strings.Contains(string(content), ".go:"); got != tc.wantCaller {
				t.Fatalf("caller present=%v want %v in %q", got, tc.wantCaller, content)
			}
		})
	}
}

func TestConsoleHeaderCarriesComponentAndSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "server")
	logger.Info("rating stored",
		logging.Study("demo_study"),
		logging.Participant("P-42"),
		logging.String(logging.FieldRecording, "song 1.wav"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one field line, got %q", content)
	}
	if !strings.Contains(lines[0], "INFO [server] demo_study · P-42 – rating stored") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != `    - recording: "song 1.wav"` {
		t.Fatalf("unexpected field line: %q", lines[1])
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := logging.WithRequestID(context.Background(), "req-1")
	ctx = logging.WithStudy(ctx, "demo")
	ctx = logging.WithParticipant(ctx, "  ")

	logging.WithContext(ctx, base).Info("handled")

	out := buf.String()
	if !strings.Contains(out, `"correlation_id":"req-1"`) || !strings.Contains(out, `"study":"demo"`) {
		t.Fatalf("missing context fields: %s", out)
	}
	if strings.Contains(out, `"participant"`) {
		t.Fatalf("blank participant should be skipped: %s", out)
	}
	if id, ok := logging.RequestIDFromContext(ctx); !ok || id != "req-1" {
		t.Fatalf("unexpected request id %q ok=%v", id, ok)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WarnWithContext(logger, "backend offline", "submit_failed", logging.String(logging.FieldErrorHint, "retry later"))

	out := buf.String()
	for _, want := range []string{`"event_type":"submit_failed"`, `"error_hint":"retry later"`, `"impact":`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
	logging.WarnWithContext(nil, "ignored", "noop")
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected nop logger disabled")
	}
	logging.NewComponentLogger(nil, "widget").Info("dropped")
}
