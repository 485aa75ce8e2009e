package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToZapFields(t *testing.T) {
	fields := []Field{
		String("s", "v"),
		Int("i", 1),
		Int64("i64", int64(2)),
		Float64("f", 0.5),
		Bool("b", true),
		Duration("d", time.Second),
		Err(errors.New("boom")),
		Any("a", []string{"x"}),
	}
	out := toZapFields(fields)
	require.Len(t, out, len(fields))
	assert.Equal(t, "s", out[0].Key)
	assert.Equal(t, "error", out[6].Key)
}

func TestErrNil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestLoggerWithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core)

	log.With(String("component", "dedup")).Named("engine").Info("run complete", Int("groups", 3))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "run complete", entries[0].Message)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "dedup", ctx["component"])
	assert.Equal(t, int64(3), ctx["groups"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("bogus"))
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	core, logs := observer.New(zapcore.InfoLevel)
	SetDefault(NewLoggerFromCore(core))
	Default().Info("hello")
	assert.Equal(t, 1, logs.Len())

	// nil is ignored
	SetDefault(nil)
	Default().Info("again")
	assert.Equal(t, 2, logs.Len())
}
