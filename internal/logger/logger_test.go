package logger

import (
	"testing"

	"github.com/deppfellow/memberships/internal/config"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestGetPgxTraceLogLevel(t *testing.T) {
	tests := []struct {
		level zerolog.Level
		want  tracelog.LogLevel
	}{
		{zerolog.TraceLevel, tracelog.LogLevelTrace},
		{zerolog.DebugLevel, tracelog.LogLevelDebug},
		{zerolog.InfoLevel, tracelog.LogLevelInfo},
		{zerolog.WarnLevel, tracelog.LogLevelWarn},
		{zerolog.ErrorLevel, tracelog.LogLevelError},
		{zerolog.FatalLevel, tracelog.LogLevelNone},
	}

	for _, tt := range tests {
		assert.Equal(t, int(tt.want), GetPgxTraceLogLevel(tt.level), tt.level.String())
	}
}

func TestLoggerServiceWithoutLicense(t *testing.T) {
	cfg := config.DefaultObservabilityConfig()
	cfg.NewRelic.LicenseKey = ""

	service := NewLoggerService(cfg)
	assert.Nil(t, service.GetApplication())
	service.Shutdown()

	var missing *LoggerService
	assert.Nil(t, missing.GetApplication())
	missing.Shutdown()
}

func TestNewLoggerWithServiceLevel(t *testing.T) {
	cfg := config.DefaultObservabilityConfig()
	cfg.Environment = "local"
	cfg.Logging.Level = "warn"

	logger := NewLoggerWithService(cfg, nil)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestWithTraceContextWithoutTransaction(t *testing.T) {
	logger := zerolog.Nop()
	assert.Equal(t, logger, WithTraceContext(logger, nil))
}
