// Package zap adapts a *zap.Logger to entstore.Logger.
package zap

import (
	"github.com/unkn0wn-root/entstore"
	"go.uber.org/zap"
)

var _ entstore.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New names the logger "entstore" so store events are easy to filter.
func New(l *zap.Logger) Logger { return Logger{L: l.Named("entstore")} }

func (z Logger) Debug(msg string, f entstore.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f entstore.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f entstore.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f entstore.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f entstore.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
