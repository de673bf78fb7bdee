package zap

import (
	"errors"
	"testing"

	"github.com/unkn0wn-root/cacheaside"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := ZapLogger{L: zap.New(core)}

	l.Debug("lock wait timed out", cacheaside.Fields{"key": "k", "err": errors.New("boom")})
	l.Warn("gen snapshot error", nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries=%d want 2", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel || entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("levels=%v,%v", entries[0].Level, entries[1].Level)
	}
	ctx := entries[0].ContextMap()
	if ctx["key"] != "k" || ctx["err"] != "boom" {
		t.Fatalf("fields=%v", ctx)
	}
}
