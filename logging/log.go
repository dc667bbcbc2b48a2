package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

type prefixFormatter struct {
	prefix    string
	formatter log.Formatter
}

// Options of the logging initialization.
type Options struct {

	// Prefix for application log entries. Primarily used to be
	// able to select between access log and application log
	// entries.
	ApplicationLogPrefix string

	// Output for the application log entries, when nil,
	// os.Stderr is used.
	ApplicationLogOutput io.Writer

	// Level of the application log. When empty, the level is not
	// changed.
	ApplicationLogLevel string

	// Output for the access log entries, when nil, os.Stderr is
	// used.
	AccessLogOutput io.Writer

	// When set, no access log is printed.
	AccessLogDisabled bool

	// When set, the access log entries are printed as JSON.
	AccessLogJSONEnabled bool
}

func (f *prefixFormatter) Format(e *log.Entry) ([]byte, error) {
	b, err := f.formatter.Format(e)
	if err != nil {
		return nil, err
	}

	return append([]byte(f.prefix), b...), nil
}

func initApplicationLog(prefix string, output io.Writer) {
	if prefix != "" {
		log.SetFormatter(&prefixFormatter{prefix, &log.TextFormatter{}})
	}

	if output != nil {
		log.SetOutput(output)
	}
}

func initAccessLog(output io.Writer, jsonEnabled bool) *log.Logger {
	l := log.New()
	if jsonEnabled {
		l.Formatter = &log.JSONFormatter{TimestampFormat: dateFormat, DisableTimestamp: true}
	} else {
		l.Formatter = &accessLogFormatter{accessLogFormat}
	}

	l.Out = output
	l.Level = log.InfoLevel
	return l
}

// Init initializes the application log and the access log. It fails only
// when the application log level is invalid.
func Init(o Options) error {
	if o.ApplicationLogLevel != "" {
		level, err := log.ParseLevel(o.ApplicationLogLevel)
		if err != nil {
			return err
		}

		log.SetLevel(level)
	}

	if o.ApplicationLogPrefix != "" || o.ApplicationLogOutput != nil {
		initApplicationLog(o.ApplicationLogPrefix, o.ApplicationLogOutput)
	}

	if o.AccessLogDisabled {
		accessLog.Store(nil)
		return nil
	}

	if o.AccessLogOutput == nil {
		o.AccessLogOutput = os.Stderr
	}

	accessLog.Store(initAccessLog(o.AccessLogOutput, o.AccessLogJSONEnabled))
	return nil
}
