package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			log, err := New(&Config{Level: "debug", Format: format, Output: "stderr"})
			require.NoError(t, err)
			require.NotNil(t, log)
			assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNew_FileOutputWithService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")

	log, err := New(&Config{Level: "info", Format: "json", Output: path, Service: "crm-dashboard"})
	require.NoError(t, err)
	log.Info("written to file")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "written to file", entry["msg"])
	assert.Equal(t, "crm-dashboard", entry["service"])
}

func TestNew_UnwritableFile(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "app.log")})
	assert.Error(t, err)
}
