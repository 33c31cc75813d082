// Package logx builds the one *zap.Logger each session uses, narrowed from
// kandev's internal/common/logger to the single config knob this
// repository needs: JSON output by default, or human-readable console
// output when AGENT_TEAM_LOG_FORMAT asks for it.
//
// Grounded on kandev's internal/common/logger (LoggingConfig, format
// detection, encoder/writer wiring); the per-session correlation fields it
// adds (WithTaskID, WithAgentID) become the session name/type/pid fields
// New attaches once, up front, rather than a general WithFields API no
// caller in this repository needs.
package logx

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger for one session, with name/agentType/pid attached as
// fields on every subsequent call. Format is chosen by AGENT_TEAM_LOG_FORMAT
// ("json" or "console"); unset or unrecognized defaults to JSON. Whether
// stderr is a terminal is not checked.
func New(name, agentType string, pid int) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	if format() == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zapcore.InfoLevel)
	logger := zap.New(core, zap.AddCaller())

	return logger.With(
		zap.String("session", name),
		zap.String("type", agentType),
		zap.Int("pid", pid),
	)
}

func format() string {
	switch os.Getenv("AGENT_TEAM_LOG_FORMAT") {
	case "json":
		return "json"
	case "console":
		return "console"
	default:
		return "json"
	}
}
