package capi

import (
	"github.com/rs/zerolog"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{}) {}
func (NopLogger) Info(string, map[string]interface{})  {}
func (NopLogger) Warn(string, map[string]interface{})  {}
func (NopLogger) Error(string, map[string]interface{}) {}

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}

	return l
}

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger wraps log.
func NewZerologLogger(log zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{log: log}
}

func (z *ZerologLogger) Debug(msg string, fields map[string]interface{}) {
	z.log.Debug().Fields(fields).Msg(msg)
}

func (z *ZerologLogger) Info(msg string, fields map[string]interface{}) {
	z.log.Info().Fields(fields).Msg(msg)
}

func (z *ZerologLogger) Warn(msg string, fields map[string]interface{}) {
	z.log.Warn().Fields(fields).Msg(msg)
}

func (z *ZerologLogger) Error(msg string, fields map[string]interface{}) {
	z.log.Error().Fields(fields).Msg(msg)
}
