package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelStrings(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("DEBUG", DebugLevel.String())
	assert.Equal("INFO", InfoLevel.String())
	assert.Equal("WARN", WarnLevel.String())
	assert.Equal("ERROR", ErrorLevel.String())
	assert.Equal("FATAL", FatalLevel.String())
}

func TestFormatMessageMergesFields(t *testing.T) {
	logger := NewDefaultLoggerNoColor()
	scoped := logger.WithFields(Fields{"component": "test"}).(*DefaultLogger)

	msg := scoped.formatMessage(InfoLevel, nil, "hello", Fields{"n": 1})

	assert := assert.New(t)
	assert.Contains(msg, "[INFO] hello")
	assert.Contains(msg, "component:test")
	assert.Contains(msg, "n:1")
}

func TestLevelFilteringSkipsDebugByDefault(t *testing.T) {
	logger := NewDefaultLoggerNoColor()
	assert.Equal(t, InfoLevel, logger.level)

	logger.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, logger.level)
}

func TestSetGlobalLoggerNilFallsBackToNoOp(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)
}
