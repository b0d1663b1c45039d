package logger

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/user/videowriter/pkg/ports"
)

// JSONLogger writes one JSON object per message using zerolog.
// Messages are formatted untranslated so log processors see stable text.
type JSONLogger struct {
	zl zerolog.Logger
}

// NewJSON creates a JSON logger writing to w at the given level.
func NewJSON(w io.Writer, level ports.LogLevel) *JSONLogger {
	return &JSONLogger{
		zl: zerolog.New(w).Level(zerologLevel(level)).With().Timestamp().Logger(),
	}
}

func zerologLevel(level ports.LogLevel) zerolog.Level {
	switch level {
	case ports.LevelDebug:
		return zerolog.DebugLevel
	case ports.LevelInfo:
		return zerolog.InfoLevel
	case ports.LevelWarn:
		return zerolog.WarnLevel
	case ports.LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

func (l *JSONLogger) Debug(msg string, args ...interface{}) {
	l.zl.Debug().Msg(fmt.Sprintf(msg, args...))
}

func (l *JSONLogger) Info(msg string, args ...interface{}) {
	l.zl.Info().Msg(fmt.Sprintf(msg, args...))
}

func (l *JSONLogger) Warn(msg string, args ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(msg, args...))
}

func (l *JSONLogger) Error(msg string, args ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(msg, args...))
}

// WithComponent returns a logger that adds a component field.
func (l *JSONLogger) WithComponent(component string) ports.Logger {
	return &JSONLogger{zl: l.zl.With().Str("component", component).Logger()}
}

var _ ports.Logger = (*JSONLogger)(nil)
