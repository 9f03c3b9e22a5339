package logx

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

var (
	debugEnabled atomic.Bool
	logger       = log.New(os.Stderr, "[debug] ", log.LstdFlags)
	infoLogger   = log.New(os.Stderr, "[info] ", log.LstdFlags)
	errorLogger  = log.New(os.Stderr, "[error] ", log.LstdFlags)
)

// EnableDebug toggles runtime debug logging.
func EnableDebug(enable bool) {
	debugEnabled.Store(enable)
}

// DebugEnabled reports whether debug logging is on.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetOutput redirects all log levels, mostly for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
	infoLogger.SetOutput(w)
	errorLogger.SetOutput(w)
}

// Debugf prints a formatted message when debug logging is enabled.
func Debugf(format string, args ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	logger.Printf(format, args...)
}

// Infof prints an operational message.
func Infof(format string, args ...interface{}) {
	infoLogger.Printf(format, args...)
}

// Errorf prints a failure that was handled and did not stop the caller.
func Errorf(format string, args ...interface{}) {
	errorLogger.Printf(format, args...)
}
