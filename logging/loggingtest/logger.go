// Package loggingtest provides a logging.Logger for tests, that records
// the entries and lets the tests wait for them.
package loggingtest

import (
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/zalando/traject/logging"
)

// ErrWaitTimeout is returned when the expected entries were not logged in
// time.
var ErrWaitTimeout = errors.New("timeout")

type subscription struct {
	exp      string
	n        int
	response chan struct{}
}

type store struct {
	mu      sync.Mutex
	entries []string
	subs    []*subscription
	muted   bool
}

// TestLogger records the logged entries. It prints them with the log
// package of the standard library, unless muted.
type TestLogger struct {
	store  *store
	fields map[string]any
}

var _ logging.Logger = (*TestLogger)(nil)

// New creates a TestLogger.
func New() *TestLogger {
	return &TestLogger{store: &store{}}
}

func (s *store) save(e string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.muted {
		return
	}

	log.Println(e)
	s.entries = append(s.entries, e)
	s.subs = slices.DeleteFunc(s.subs, func(sub *subscription) bool {
		if !strings.Contains(e, sub.exp) {
			return false
		}

		sub.n--
		if sub.n > 0 {
			return false
		}

		close(sub.response)
		return true
	})
}

func (s *store) subscribe(exp string, n int) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &subscription{exp: exp, n: n, response: make(chan struct{})}
	for _, e := range s.entries {
		if strings.Contains(e, exp) {
			sub.n--
		}
	}

	if sub.n <= 0 {
		close(sub.response)
	} else {
		s.subs = append(s.subs, sub)
	}

	return sub.response
}

func (tl *TestLogger) format(msg string) string {
	if len(tl.fields) == 0 {
		return msg
	}

	var b strings.Builder
	b.WriteString(msg)
	for _, k := range slices.Sorted(maps.Keys(tl.fields)) {
		fmt.Fprintf(&b, " %s=%v", k, tl.fields[k])
	}

	return b.String()
}

func (tl *TestLogger) logf(f string, a ...any) { tl.store.save(tl.format(fmt.Sprintf(f, a...))) }
func (tl *TestLogger) log(a ...any)            { tl.store.save(tl.format(fmt.Sprint(a...))) }

// WaitForN waits until exp was logged n times, or the timeout expires.
func (tl *TestLogger) WaitForN(exp string, n int, to time.Duration) error {
	found := tl.store.subscribe(exp, n)
	select {
	case <-found:
		return nil
	case <-time.After(to):
		return ErrWaitTimeout
	}
}

// WaitFor waits until exp was logged, or the timeout expires.
func (tl *TestLogger) WaitFor(exp string, to time.Duration) error {
	return tl.WaitForN(exp, 1, to)
}

// Count returns how many entries contain exp.
func (tl *TestLogger) Count(exp string) int {
	tl.store.mu.Lock()
	defer tl.store.mu.Unlock()

	var n int
	for _, e := range tl.store.entries {
		if strings.Contains(e, exp) {
			n++
		}
	}

	return n
}

// Reset drops the recorded entries and the pending waits.
func (tl *TestLogger) Reset() {
	tl.store.mu.Lock()
	defer tl.store.mu.Unlock()
	tl.store.entries = nil
	tl.store.subs = nil
}

// Mute stops recording the entries.
func (tl *TestLogger) Mute() {
	tl.store.mu.Lock()
	defer tl.store.mu.Unlock()
	tl.store.muted = true
}

// Unmute restarts recording the entries.
func (tl *TestLogger) Unmute() {
	tl.store.mu.Lock()
	defer tl.store.mu.Unlock()
	tl.store.muted = false
}

// Close is a noop. It is kept so that the logger can be used with defer
// like the other test helpers.
func (tl *TestLogger) Close() {}

func (tl *TestLogger) Error(a ...any)            { tl.log(a...) }
func (tl *TestLogger) Errorf(f string, a ...any) { tl.logf(f, a...) }
func (tl *TestLogger) Warn(a ...any)             { tl.log(a...) }
func (tl *TestLogger) Warnf(f string, a ...any)  { tl.logf(f, a...) }
func (tl *TestLogger) Info(a ...any)             { tl.log(a...) }
func (tl *TestLogger) Infof(f string, a ...any)  { tl.logf(f, a...) }
func (tl *TestLogger) Debug(a ...any)            { tl.log(a...) }
func (tl *TestLogger) Debugf(f string, a ...any) { tl.logf(f, a...) }

// WithFields returns a logger recording into the same store, with the
// fields appended to each entry as key=value.
func (tl *TestLogger) WithFields(fields map[string]any) logging.Logger {
	merged := maps.Clone(tl.fields)
	if merged == nil {
		merged = make(map[string]any)
	}

	maps.Copy(merged, fields)
	return &TestLogger{store: tl.store, fields: merged}
}
