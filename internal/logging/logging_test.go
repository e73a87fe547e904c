package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		" WARN ": zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"":       zapcore.InfoLevel,
		"loud":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	log, err := New("warn", "marketplace-api")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}
