package ulogger

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

// TestLogger discards everything.
type TestLogger struct{}

func (l TestLogger) LogLevel() int                                { return LevelDebug }
func (l TestLogger) SetLogLevel(level string)                     {}
func (l TestLogger) Debugf(format string, args ...interface{})    {}
func (l TestLogger) Infof(format string, args ...interface{})     {}
func (l TestLogger) Warnf(format string, args ...interface{})     {}
func (l TestLogger) Errorf(format string, args ...interface{})    {}
func (l TestLogger) Fatalf(format string, args ...interface{})    {}
func (l TestLogger) New(service string, options ...Option) Logger { return l }
func (l TestLogger) Duplicate(options ...Option) Logger           { return l }

type VerboseTestLogger struct {
	t     *testing.T
	mutex sync.Mutex
}

func NewVerboseTestLogger(t *testing.T) *VerboseTestLogger {
	return &VerboseTestLogger{t: t}
}

func (l *VerboseTestLogger) LogLevel() int {
	return LevelDebug
}

func (l *VerboseTestLogger) SetLogLevel(level string) {}

func (l *VerboseTestLogger) New(service string, options ...Option) Logger {
	return l
}

func (l *VerboseTestLogger) Duplicate(options ...Option) Logger {
	return l
}

func (l *VerboseTestLogger) Debugf(format string, args ...interface{}) {
	l.log("[DEBUG] ", format, args...)
}

func (l *VerboseTestLogger) Infof(format string, args ...interface{}) {
	l.log("[INFO] ", format, args...)
}

func (l *VerboseTestLogger) Warnf(format string, args ...interface{}) {
	l.log("[WARN] ", format, args...)
}

func (l *VerboseTestLogger) Errorf(format string, args ...interface{}) {
	l.log("[ERROR] ", format, args...)
}

func (l *VerboseTestLogger) Fatalf(format string, args ...interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.t.Fatalf("[FATAL] "+format, args...)
}

func (l *VerboseTestLogger) log(prefix, format string, args ...interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.t.Logf(prefix+format, args...)
}

type TestingT interface {
	Errorf(format string, args ...interface{})
	Logf(format string, args ...any)
}

type tHelper = interface {
	Helper()
}

// ErrorTestLogger fails the test whenever Errorf or Fatalf is called, unless
// SkipFailOnError was set. Tests that exercise infrastructure failures on purpose
// set it.
type ErrorTestLogger struct {
	t               TestingT
	skipFailOnError atomic.Bool
	shutdown        atomic.Bool
}

func NewErrorTestLogger(t TestingT) *ErrorTestLogger {
	return &ErrorTestLogger{t: t}
}

func (l *ErrorTestLogger) SkipFailOnError(skip bool) {
	l.skipFailOnError.Store(skip)
}

// Shutdown marks the logger as shutdown, preventing further access to testing.T
func (l *ErrorTestLogger) Shutdown() {
	l.shutdown.Store(true)
}

func (l *ErrorTestLogger) LogLevel() int                                { return LevelError }
func (l *ErrorTestLogger) SetLogLevel(level string)                     {}
func (l *ErrorTestLogger) New(service string, options ...Option) Logger { return l }
func (l *ErrorTestLogger) Duplicate(options ...Option) Logger           { return l }
func (l *ErrorTestLogger) Debugf(format string, args ...interface{})    {}
func (l *ErrorTestLogger) Infof(format string, args ...interface{})     {}
func (l *ErrorTestLogger) Warnf(format string, args ...interface{})     {}

func (l *ErrorTestLogger) Errorf(format string, args ...interface{}) {
	l.report("ERR_LEVEL", format, args...)
}

func (l *ErrorTestLogger) Fatalf(format string, args ...interface{}) {
	l.report("FATAL_LEVEL", format, args...)
}

func (l *ErrorTestLogger) report(level, format string, args ...interface{}) {
	if l.shutdown.Load() {
		return
	}

	if h, ok := l.t.(tHelper); ok {
		h.Helper()
	}

	_, file, line, _ := runtime.Caller(2)
	prefix := fmt.Sprintf("%s:%d: %s %s", file, line, level, format)

	if l.skipFailOnError.Load() {
		l.t.Logf(prefix, args...)
		return
	}

	l.t.Errorf(prefix, args...)
}
