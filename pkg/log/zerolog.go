package log

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	scierrors "github.com/YuminosukeSato/scistream/pkg/errors"
)

// zerologLogger adapts zerolog.Logger to Logger.
type zerologLogger struct {
	z zerolog.Logger
}

// NewZerologLogger はwへJSONを書き出すzerologベースのLoggerを返します。
//
// 併せてpkg/errorsの警告出力先をこのロガーに切り替えるため、ドリフト警告や
// フォールバック警告もMarshalZerologObjectによる構造化フィールド付きで出力されます。
func NewZerologLogger(w io.Writer, level Level) Logger {
	z := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	scierrors.SetZerologWarnFunc(func(warning error) {
		ev := z.Warn()
		if m, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(warning.Error())
	})
	return &zerologLogger{z: z}
}

// NewConsoleLogger returns a human-readable zerolog logger for CLI use.
func NewConsoleLogger(w io.Writer, level Level) Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return NewZerologLogger(out, level)
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.z.Debug().Fields(fields).Msg(msg) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.z.Info().Fields(fields).Msg(msg) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.z.Warn().Fields(fields).Msg(msg) }

func (l *zerologLogger) Error(msg string, fields ...any) {
	ev := l.z.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			if st := extractStacktrace(err); st != "" {
				ev = ev.Str(StacktraceAttrKey, st)
			}
			fields = fields[1:]
		}
	}
	ev.Fields(fields).Msg(msg)
}

func (l *zerologLogger) With(fields ...any) Logger {
	return &zerologLogger{z: l.z.With().Fields(fields).Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.z.GetLevel() <= toZerologLevel(level)
}
