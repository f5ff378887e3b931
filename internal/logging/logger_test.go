package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()

	logger, err := NewLogger(cfg, &bytes.Buffer{})
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.NotNil(t, logger.zap)
	assert.Equal(t, cfg, logger.config)
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNewLogger_WritesJSONWithConstantFields(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "json"
	var buf bytes.Buffer

	logger, err := NewLogger(cfg, &buf)
	require.NoError(t, err)

	logger.Info(WithWorkflow(context.Background(), "consensus"), "resolved", zap.String("path", "/data/a.tsv"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "resolved", entry["msg"])
	assert.Equal(t, "tutorialctl", entry["service"])
	assert.Equal(t, "consensus", entry["workflow"])
	assert.Equal(t, "/data/a.tsv", entry["path"])
}

func TestNewLogger_CallerPointsAtCallSite(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "json"
	cfg.Caller.Enabled = true
	var buf bytes.Buffer

	logger, err := NewLogger(cfg, &buf)
	require.NoError(t, err)
	logger.Warn(context.Background(), "stale artifact")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry["caller"], "logging/logger_test.go")
}

func TestLogger_ContextAwareMethods(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	logger := &Logger{
		zap:    zap.New(core),
		config: NewDefaultConfig(),
	}

	ctx := context.Background()

	tests := []struct {
		name    string
		logFunc func()
		level   zapcore.Level
	}{
		{"trace", func() { logger.Trace(ctx, "msg") }, TraceLevel},
		{"debug", func() { logger.Debug(ctx, "msg") }, zapcore.DebugLevel},
		{"info", func() { logger.Info(ctx, "msg") }, zapcore.InfoLevel},
		{"warn", func() { logger.Warn(ctx, "msg") }, zapcore.WarnLevel},
		{"error", func() { logger.Error(ctx, "msg") }, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observed.TakeAll()
			tt.logFunc()

			logs := observed.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
		})
	}
}

func TestLogger_TraceSkippedWhenDisabled(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	logger.Trace(context.Background(), "hidden")
	assert.Empty(t, observed.All())
	assert.False(t, logger.Enabled(TraceLevel))
}

func TestLogger_With(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	child := logger.With(zap.String("asset", "test_pathway.tar.gz"))
	child.Info(context.Background(), "cached")

	logs := observed.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "test_pathway.tar.gz", logs[0].ContextMap()["asset"])
}
