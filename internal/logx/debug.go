package logx

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pion/logging"
)

// pionLogger routes pion/dtls handshake logs into slog at the level the
// factory was created with.
type pionLogger struct {
	logger *slog.Logger
	scope  string
}

func (l pionLogger) Trace(msg string) { l.logger.Debug(msg, "scope", l.scope) }
func (l pionLogger) Tracef(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "scope", l.scope)
}
func (l pionLogger) Debug(msg string) { l.logger.Debug(msg, "scope", l.scope) }
func (l pionLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "scope", l.scope)
}
func (l pionLogger) Info(msg string) { l.logger.Info(msg, "scope", l.scope) }
func (l pionLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...), "scope", l.scope)
}
func (l pionLogger) Warn(msg string) { l.logger.Warn(msg, "scope", l.scope) }
func (l pionLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "scope", l.scope)
}
func (l pionLogger) Error(msg string) { l.logger.Error(msg, "scope", l.scope) }
func (l pionLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "scope", l.scope)
}

type pionFactory struct {
	logger *slog.Logger
}

func (f pionFactory) NewLogger(scope string) logging.LeveledLogger {
	return pionLogger{logger: f.logger, scope: scope}
}

// DTLSLoggerFactory returns a pion logger factory writing to stderr. Handshake
// details only show up with debug logging enabled.
func DTLSLoggerFactory() logging.LoggerFactory {
	level := slog.LevelWarn
	if debugEnabled.Load() {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return pionFactory{logger: slog.New(handler)}
}
