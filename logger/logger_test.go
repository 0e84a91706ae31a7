package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"Gin_postgres_redis_tool_tracker/config"
)

func TestNew_Levels(t *testing.T) {
	l, err := New(&config.LogConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error should be enabled at warn level")
	}

	if _, err := New(&config.LogConfig{Level: "debug", Format: "console"}); err != nil {
		t.Fatalf("console logger: %v", err)
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(&config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
