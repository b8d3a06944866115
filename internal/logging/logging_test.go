package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		stdio  bool
		expect zapcore.Level
	}{
		{"server info", "info", false, zapcore.InfoLevel},
		{"server debug", "debug", false, zapcore.DebugLevel},
		{"stdio info is quiet", "info", true, zapcore.WarnLevel},
		{"stdio debug stays verbose", "debug", true, zapcore.DebugLevel},
		{"stdio error", "error", true, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.stdio)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.expect))
			if tt.expect > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.expect-1))
			}
		})
	}

	_, err := New("verbose", false)
	assert.Error(t, err)
}
