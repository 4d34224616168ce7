package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapAdapter_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"taskType": "recommend-books"})

	log.Info("job started", map[string]interface{}{"jobKey": int64(42)})
	log.WithError(errors.New("boom")).Warn("catalog degraded", nil)
	log.Debug("debug entry", map[string]interface{}{"cause": errors.New("nested")})

	require.Equal(t, 3, logs.Len())

	first := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, first.Level)
	assert.Equal(t, "recommend-books", first.ContextMap()["taskType"])
	assert.Equal(t, int64(42), first.ContextMap()["jobKey"])

	second := logs.All()[1]
	assert.Equal(t, zapcore.WarnLevel, second.Level)
	assert.Equal(t, "boom", second.ContextMap()["error"])

	third := logs.All()[2]
	assert.Equal(t, "nested", third.ContextMap()["cause"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := New("chatty", "console")
	require.NotNil(t, l)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))

	d := New("debug", "json")
	assert.True(t, d.Core().Enabled(zapcore.DebugLevel))
}

func TestNoOpLogger_DoesNotPanic(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.With(map[string]interface{}{"k": "v"}).Error("ignored", nil)
	})
}
