package translate

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/keshon/server-babel/internal/core"
)

// LogHandler writes platform library log lines to the application logger.
type LogHandler struct {
	logger zerolog.Logger
}

func NewLogHandler(logger zerolog.Logger) *LogHandler {
	return &LogHandler{logger: logger.With().Str("component", "discordgo").Logger()}
}

func (h *LogHandler) Handle(_ context.Context, e core.LogReceived) error {
	h.logger.WithLevel(level(e.Severity)).Str("source", e.Source).Msg(e.Message)
	return nil
}

func level(s core.Severity) zerolog.Level {
	switch s {
	case core.SeverityError:
		return zerolog.ErrorLevel
	case core.SeverityWarning:
		return zerolog.WarnLevel
	case core.SeverityInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
