package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon ready", logging.String("bind", "127.0.0.1:0"))

	raw, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "clipforge.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), "daemon ready") {
		t.Fatalf("expected message in log file, got %s", raw)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unknown format to be rejected")
	}
}

func TestJSONHandlerHonorsLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "warn",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("quiet")
	logger.Warn("loud")

	raw, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(raw), "quiet") {
		t.Fatal("info record should have been filtered")
	}
	if !strings.Contains(string(raw), "loud") {
		t.Fatal("warn record missing")
	}
}

func TestConsoleHandlerRendersAttrs(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("export started",
		logging.String(logging.FieldProjectID, "3f2c8a76-6a34-4d8f-9f6c-1a2b3c4d5e6f"),
		logging.String(logging.FieldPhase, "rendering"))

	raw, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), "export started") {
		t.Fatalf("expected message in output, got %s", raw)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithProjectID(context.Background(), "p-123")
	ctx = services.WithPhase(ctx, "uploading")
	logging.WithContext(ctx, logger).Info("progress")

	raw, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(raw)
	if !strings.Contains(out, "p-123") || !strings.Contains(out, "uploading") {
		t.Fatalf("expected context fields in output, got %s", out)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger == nil {
		t.Fatal("expected logger")
	}
	logger.Error("discarded", logging.Int("n", 1))
}
