package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/royal-court/internal/config"
)

func TestSetup_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := setup(&config.Config{Environment: "production", LogLevel: slog.LevelInfo}, &buf)

	id := uuid.New()
	WithGame(log, id).Info("Turn completed", "turn", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if line["game_id"] != id.String() || line["msg"] != "Turn completed" {
		t.Errorf("unexpected log line: %v", line)
	}
}

func TestSetup_DevelopmentWritesTextAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := setup(&config.Config{Environment: "development", LogLevel: slog.LevelWarn}, &buf)

	log.Info("hidden")
	WithError(WithRequestID(log, "req-1"), errors.New("boom")).Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "request_id=req-1") || !strings.Contains(out, "error=boom") {
		t.Errorf("Expected request id and error attributes, got %q", out)
	}
}
