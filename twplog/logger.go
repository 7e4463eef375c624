// Package twplog provides the leveled logging interface used by the CLI
// and the internal/trace pipeline. The core decoders in frame and stp
// never log; they report everything through the caller-supplied handler.
package twplog

import (
	"fmt"
	"io"
	"log"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the logging contract required by the CLI and internal/trace.
type Logger interface {
	Log(severity Severity, msg string)
	Logf(severity Severity, format string, args ...interface{})
	Error(err error)
	Debug(msg string)
	Info(msg string)
	Warning(msg string)
}

// StdLogger implements Logger using the standard library's log package.
type StdLogger struct {
	debugLog   *log.Logger
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	minLevel   Severity
}

func NewStdLogger(minLevel Severity) *StdLogger {
	return NewStdLoggerWithWriter(os.Stdout, os.Stderr, minLevel)
}

func NewStdLoggerWithWriter(stdout, stderr io.Writer, minLevel Severity) *StdLogger {
	return &StdLogger{
		debugLog:   log.New(stdout, "DEBUG: ", log.Ltime),
		infoLog:    log.New(stdout, "INFO: ", log.Ltime),
		warningLog: log.New(stdout, "WARNING: ", log.Ltime),
		errorLog:   log.New(stderr, "ERROR: ", log.Ltime),
		minLevel:   minLevel,
	}
}

func (l *StdLogger) Log(severity Severity, msg string) {
	if severity < l.minLevel {
		return
	}
	switch severity {
	case SeverityDebug:
		l.debugLog.Output(2, msg)
	case SeverityInfo:
		l.infoLog.Output(2, msg)
	case SeverityWarning:
		l.warningLog.Output(2, msg)
	case SeverityError:
		l.errorLog.Output(2, msg)
	}
}

func (l *StdLogger) Logf(severity Severity, format string, args ...interface{}) {
	l.Log(severity, fmt.Sprintf(format, args...))
}

func (l *StdLogger) Error(err error) {
	if err != nil {
		l.Log(SeverityError, err.Error())
	}
}

func (l *StdLogger) Debug(msg string)   { l.Log(SeverityDebug, msg) }
func (l *StdLogger) Info(msg string)    { l.Log(SeverityInfo, msg) }
func (l *StdLogger) Warning(msg string) { l.Log(SeverityWarning, msg) }

// CharmLogger implements Logger on top of charmbracelet/log, giving the
// CLI colorized, leveled output when attached to a terminal (and plain
// structured output otherwise, since charmlog detects that itself).
type CharmLogger struct {
	l *charmlog.Logger
}

// NewCharmLogger returns a CharmLogger writing to w at the given minimum
// level.
func NewCharmLogger(w io.Writer, minLevel Severity) *CharmLogger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
	})
	l.SetLevel(toCharmLevel(minLevel))
	return &CharmLogger{l: l}
}

func toCharmLevel(s Severity) charmlog.Level {
	switch s {
	case SeverityDebug:
		return charmlog.DebugLevel
	case SeverityInfo:
		return charmlog.InfoLevel
	case SeverityWarning:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}

func (l *CharmLogger) Log(severity Severity, msg string) {
	switch severity {
	case SeverityDebug:
		l.l.Debug(msg)
	case SeverityInfo:
		l.l.Info(msg)
	case SeverityWarning:
		l.l.Warn(msg)
	default:
		l.l.Error(msg)
	}
}

func (l *CharmLogger) Logf(severity Severity, format string, args ...interface{}) {
	l.Log(severity, fmt.Sprintf(format, args...))
}

func (l *CharmLogger) Error(err error) {
	if err != nil {
		l.l.Error(err.Error())
	}
}

func (l *CharmLogger) Debug(msg string)   { l.l.Debug(msg) }
func (l *CharmLogger) Info(msg string)    { l.l.Info(msg) }
func (l *CharmLogger) Warning(msg string) { l.l.Warn(msg) }

// NoOpLogger discards everything; used by default in the library packages'
// own tests where log output would just be noise.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (l *NoOpLogger) Log(Severity, string)            {}
func (l *NoOpLogger) Logf(Severity, string, ...interface{}) {}
func (l *NoOpLogger) Error(error)                     {}
func (l *NoOpLogger) Debug(string)                    {}
func (l *NoOpLogger) Info(string)                     {}
func (l *NoOpLogger) Warning(string)                  {}
