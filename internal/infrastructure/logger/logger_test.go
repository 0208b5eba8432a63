package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestConfigs(t *testing.T) {
	assert.Equal(t, "console", DefaultConfig().Format)
	assert.Equal(t, "json", ProductionConfig().Format)
	assert.Equal(t, "info", ProductionConfig().Level)
}

func TestNew_FileOutputWithServiceFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")

	log, err := New(&Config{
		Level:   "debug",
		Format:  "json",
		Output:  path,
		Service: "warehouse-engine",
		Env:     "test",
	})
	require.NoError(t, err)

	log.Debug("batch locked")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"batch locked"`)
	assert.Contains(t, string(data), `"service":"warehouse-engine"`)
	assert.Contains(t, string(data), `"env":"test"`)
	assert.Contains(t, string(data), `"level":"debug"`)
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "engine.log")})
	assert.Error(t, err)
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		log, err := NewForEnvironment(env)
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}
