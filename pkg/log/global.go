package log

import (
	"context"
	"sync/atomic"
)

var global atomic.Value

type holder struct{ l Logger }

// GetLogger returns the process-wide logger. It discards everything until
// SetLogger is called.
func GetLogger() Logger {
	if h, ok := global.Load().(holder); ok {
		return h.l
	}
	return Nop()
}

// SetLogger replaces the process-wide logger. A nil logger restores the no-op default.
func SetLogger(l Logger) {
	if l == nil {
		l = Nop()
	}
	global.Store(holder{l: l})
}

// Nop returns a Logger that drops every record.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                {}
func (nopLogger) Info(string, ...any)                 {}
func (nopLogger) Warn(string, ...any)                 {}
func (nopLogger) Error(string, ...any)                {}
func (n nopLogger) With(...any) Logger                { return n }
func (nopLogger) Enabled(context.Context, Level) bool { return false }
