/*
Package logging implements application log instrumentation and Apache
combined access log.

# Application Log

The application log uses the logrus package:

https://github.com/sirupsen/logrus

To send messages to the application log, import logrus and use its
methods. Example:

	import log "github.com/sirupsen/logrus"

	func doSomething() {
		log.Errorf("nothing to do")
	}

During startup initialization, it is possible to redirect the log output
from the default /dev/stderr to another file, to set the level, and to set
a common prefix for each log entry. Setting the prefix may be a good idea
when the access log is enabled and its output is the same as the one of
the application log, to make it easier to split the output for
diagnostics.

Components that accept a custom logger use the Logger interface.
DefaultLog implements it on top of logrus.

# Access Log

The access log prints HTTP access information in the Apache combined
access log format, extended with the duration, the requested host, the
resolved application and view, and the request id. The handler returned
by NewHandler wraps the dispatch handler, and logs every request
automatically.

During initialization, it is possible to redirect the access log output
from the default /dev/stderr to another file, switch to JSON output, or
completely disable the access log.

# Request IDs

The handler returned by NewHandler takes the request id from the
X-Request-Id header, or generates a random UUID when the header is
missing, and returns it in the response.
*/
package logging
