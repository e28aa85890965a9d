package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"caseprep/internal/logger"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		cfg   logger.Config
		level zapcore.Level
	}{
		{"default", logger.Config{}, zapcore.InfoLevel},
		{"debug", logger.Config{Level: "debug"}, zapcore.DebugLevel},
		{"warn development", logger.Config{Level: "warn", Development: true}, zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := logger.New(tt.cfg)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.level))
			assert.False(t, l.Core().Enabled(tt.level-1))
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := logger.New(logger.Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	assert.NotNil(t, logger.Nop(nil))
}
