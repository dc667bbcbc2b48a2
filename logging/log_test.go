package logging

import (
	"bytes"
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetApplicationLog() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{})
	log.SetLevel(log.InfoLevel)
}

func TestCustomOutputForApplicationLog(t *testing.T) {
	defer resetApplicationLog()

	var buf bytes.Buffer
	require.NoError(t, Init(Options{ApplicationLogOutput: &buf, AccessLogDisabled: true}))
	log.Info("Hello, world!")
	assert.Contains(t, buf.String(), "Hello, world!")
}

func TestCustomPrefixForApplicationLog(t *testing.T) {
	defer resetApplicationLog()

	var buf bytes.Buffer
	require.NoError(t, Init(Options{
		ApplicationLogOutput: &buf,
		ApplicationLogPrefix: "[TEST_PREFIX]",
		AccessLogDisabled:    true,
	}))

	log.Info("Hello, world!")
	assert.Regexp(t, `^\[TEST_PREFIX\].*Hello, world!`, buf.String())
}

func TestApplicationLogLevel(t *testing.T) {
	defer resetApplicationLog()

	var buf bytes.Buffer
	require.NoError(t, Init(Options{
		ApplicationLogOutput: &buf,
		ApplicationLogLevel:  "WARN",
		AccessLogDisabled:    true,
	}))

	log.Info("not logged")
	log.Warn("logged")
	assert.NotContains(t, buf.String(), "not logged")
	assert.Contains(t, buf.String(), "logged")
}

func TestInvalidApplicationLogLevel(t *testing.T) {
	assert.Error(t, Init(Options{ApplicationLogLevel: "LOUD", AccessLogDisabled: true}))
}
