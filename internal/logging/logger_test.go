package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("job advanced", String(FieldComponent, "pipeline"), String(FieldJobID, "abc"), Int("total", 4))

	line := buf.String()
	if !strings.Contains(line, "INFO pipeline: job advanced") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "job_id=abc") || !strings.Contains(line, "total=4") {
		t.Fatalf("expected attrs in line: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Warn("failure", String("message", "zip archive is empty"))

	if !strings.Contains(buf.String(), `message="zip archive is empty"`) {
		t.Fatalf("expected quoted value: %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	ctx := WithJobID(context.Background(), "job-1")
	ctx = WithStage(ctx, "analyze")
	ctx = WithRequestID(ctx, "req-9")

	WithContext(ctx, logger).Info("stage started")

	line := buf.String()
	for _, want := range []string{"job_id=job-1", "stage=analyze", "correlation_id=req-9"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %q", want, line)
		}
	}
}

func TestWithContextNilLoggerReturnsNop(t *testing.T) {
	logger := WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Info("should not panic")
}
