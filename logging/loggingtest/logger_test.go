package loggingtest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/traject/logging/loggingtest"
)

func TestLoggingTest(t *testing.T) {
	lt := loggingtest.New()
	defer lt.Close()

	lt.Debug("debug")
	lt.Debugf("debugf: %s", "foo")
	lt.Info("info")
	lt.Infof("infof: %s", "foo")
	lt.Warn("warn")
	lt.Warnf("warnf: %s", "foo")
	lt.Error("error")
	lt.Errorf("errorf: %s", "foo")
	for _, s := range []string{"debug", "debugf: foo", "info", "infof: foo",
		"warn", "warnf: foo", "error", "errorf: foo"} {
		require.NoError(t, lt.WaitFor(s, time.Second), s)
	}

	assert.Equal(t, 2, lt.Count("info"))

	lt.Reset()
	assert.ErrorIs(t, lt.WaitForN("foo", 2, time.Millisecond), loggingtest.ErrWaitTimeout)

	lt.Mute()
	lt.Info("info")
	assert.Equal(t, 0, lt.Count("info"))

	lt.Unmute()
	lt.Info("info")
	assert.Equal(t, 1, lt.Count("info"))
}

func TestWaitForLaterEntry(t *testing.T) {
	lt := loggingtest.New()
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(10 * time.Millisecond)
		lt.Error("late")
	}()

	assert.NoError(t, lt.WaitFor("late", time.Second))
	<-done
}

func TestWithFields(t *testing.T) {
	lt := loggingtest.New()
	lt.WithFields(map[string]any{"view": "edit", "app": "root"}).Info("served")
	assert.Equal(t, 1, lt.Count("served app=root view=edit"))
}
