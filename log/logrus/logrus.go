// Package logrus adapts a *logrus.Entry to entstore.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/entstore"
)

var _ entstore.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New tags every entry with component=entstore.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "entstore")}
}

func (l Logger) Debug(msg string, f entstore.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f entstore.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f entstore.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f entstore.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f entstore.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	return l.E.WithFields(logrus.Fields(f))
}
