package lumen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerDebugSwitch(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoggerFromZap(zap.New(core), false)

	l.Debugf("hidden %d", 1)
	assert.Zero(t, logs.Len())

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("shown %d", 2)
	l.Warnf("warn")
	entries := logs.AllUntimed()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "shown 2", entries[0].Message)
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	}

	l.SetDebug(false)
	assert.False(t, l.DebugEnabled())
}

func TestLoggerDebugFollowsWrappedCore(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewLoggerFromZap(zap.New(core), true)

	assert.False(t, l.DebugEnabled())
	l.Debugf("dropped")
	l.SetDebug(true)
	l.Debugf("dropped")
	l.Infof("kept")
	entries := logs.AllUntimed()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "kept", entries[0].Message)
	}
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.NotNil(t, l)
	assert.False(t, l.DebugEnabled())
	l.Errorf("dropped")

	d := NewDefaultLogger("test", true)
	assert.Same(t, d, OrNop(d))
	assert.True(t, d.DebugEnabled())
}
