package logging

import (
	"maps"

	log "github.com/sirupsen/logrus"
)

// Logger instances provide custom logging.
type Logger interface {

	// Log with level ERROR
	Error(...any)

	// Log formatted messages with level ERROR
	Errorf(string, ...any)

	// Log with level WARN
	Warn(...any)

	// Log formatted messages with level WARN
	Warnf(string, ...any)

	// Log with level INFO
	Info(...any)

	// Log formatted messages with level INFO
	Infof(string, ...any)

	// Log with level DEBUG
	Debug(...any)

	// Log formatted messages with level DEBUG
	Debugf(string, ...any)

	// Returns a logger that adds the fields to every entry.
	WithFields(map[string]any) Logger
}

// DefaultLog provides a default implementation of the Logger interface,
// based on logrus.
type DefaultLog struct {
	logger *log.Logger
	fields log.Fields
}

// New returns a Logger writing to the application log.
func New() *DefaultLog {
	return NewWithLogger(log.StandardLogger())
}

// NewWithLogger returns a Logger writing to a custom logrus logger.
func NewWithLogger(l *log.Logger) *DefaultLog {
	return &DefaultLog{logger: l, fields: log.Fields{}}
}

func (dl *DefaultLog) entry() *log.Entry { return dl.logger.WithFields(dl.fields) }

func (dl *DefaultLog) Error(a ...any)            { dl.entry().Error(a...) }
func (dl *DefaultLog) Errorf(f string, a ...any) { dl.entry().Errorf(f, a...) }
func (dl *DefaultLog) Warn(a ...any)             { dl.entry().Warn(a...) }
func (dl *DefaultLog) Warnf(f string, a ...any)  { dl.entry().Warnf(f, a...) }
func (dl *DefaultLog) Info(a ...any)             { dl.entry().Info(a...) }
func (dl *DefaultLog) Infof(f string, a ...any)  { dl.entry().Infof(f, a...) }
func (dl *DefaultLog) Debug(a ...any)            { dl.entry().Debug(a...) }
func (dl *DefaultLog) Debugf(f string, a ...any) { dl.entry().Debugf(f, a...) }

func (dl *DefaultLog) WithFields(fields map[string]any) Logger {
	merged := maps.Clone(dl.fields)
	maps.Copy(merged, fields)
	return &DefaultLog{logger: dl.logger, fields: merged}
}
