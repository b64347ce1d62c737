/*------------------------------------------------------------------------------
* logx.go : injected leveled logger
*
* Re-architects gnssgo/common.go's package-level Trace()/Tracet() sink (§9
* design note "global option store and logger") as a borrowed collaborator:
* every C2-C10 component takes a Log at construction time instead of
* reaching into a process-wide location. Backed by logrus.FieldLogger, the
* way pkg/server.Server and pkg/caster.Caster take one in bramburn-gnssgo.
*-----------------------------------------------------------------------------*/
package logx

import "github.com/sirupsen/logrus"

// Log is the leveled logger handle injected into every core component.
// It is satisfied directly by *logrus.Logger and by *logrus.Entry.
type Log interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithFields(fields logrus.Fields) *logrus.Entry
}

// New returns a logrus-backed Log writing to stderr at Info level, the
// default a standalone conversion run starts with.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Discard returns a Log that drops everything, for tests and for callers
// that truly don't want conversion diagnostics.
func Discard() Log {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
