package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger to the Logger interface. It is the
// structured Logger implementation; OrDefault does not use it and falls
// back to DefaultLogger, which needs no zerolog dependency.
type ZerologLogger struct {
	log          zerolog.Logger
	fatalHandler FatalHandler
}

// NewZerologLogger builds a ZerologLogger writing JSON lines to w at the
// given level. Pass os.Stderr for w in production; pass a
// zerolog.ConsoleWriter wrapping os.Stderr for human-readable local output.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	return &ZerologLogger{
		log: zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger(),
	}
}

// NewZerologConsoleLogger builds a ZerologLogger with zerolog's
// human-readable console writer, suitable for local development.
func NewZerologConsoleLogger(level Level) *ZerologLogger {
	return NewZerologLogger(zerolog.ConsoleWriter{Out: os.Stderr}, level)
}

func toZerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelError:
		return zerolog.ErrorLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetFatalHandler sets the handler called when Fatalf is invoked.
func (l *ZerologLogger) SetFatalHandler(h FatalHandler) {
	l.fatalHandler = h
}

// Errorf implements Logger.
func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

// Warnf implements Logger.
func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

// Infof implements Logger.
func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

// Debugf implements Logger.
func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

// Fatalf logs at FATAL level and invokes the configured FatalHandler. It
// does not call os.Exit; callers that want process termination should do
// so from their FatalHandler.
func (l *ZerologLogger) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.log.Error().Str("level", "FATAL").Msg(msg)
	if l.fatalHandler != nil {
		l.fatalHandler(msg)
	}
}

// With returns a ZerologLogger with name added as a "component" field on
// every subsequent message, e.g. logging.OrDefault(base).(*ZerologLogger).With("buffer").
func (l *ZerologLogger) With(component string) *ZerologLogger {
	return &ZerologLogger{
		log:          l.log.With().Str("component", component).Logger(),
		fatalHandler: l.fatalHandler,
	}
}
