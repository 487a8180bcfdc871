// Package elog is a small leveled logger on top of the standard log
// package. Everything in the pipeline logs through a Logger so tests can
// swap in a NullLogger.
package elog

import(
	"fmt"
	"log"
	"os"
)

type LogLevel int

const(
	LogDebug LogLevel = iota
	LogInfo
	LogError
)

var logLevelPrefix = map[LogLevel]string{
	LogDebug: "DEBUG",
	LogInfo:  "INFO",
	LogError: "ERROR",
}

type Logger interface {
	Debugf(format string, a ...interface{})
	Infof(format string, a ...interface{})
	Errorf(format string, a ...interface{})
}

// StdLogger writes to a *log.Logger, dropping anything below Level.
type StdLogger struct {
	Level LogLevel
	*log.Logger
}

// New maps a CLI verbosity (0 quiet, 1 debug) onto a StdLogger writing to stderr.
func New(verbosity int) *StdLogger {
	l := &StdLogger{
		Level:  LogInfo,
		Logger: log.New(os.Stderr, "", log.Ldate|log.Ltime),
	}
	if verbosity > 0 {
		l.Level = LogDebug
	}
	return l
}

func (l *StdLogger)printf(level LogLevel, format string, a ...interface{}) {
	if level < l.Level {
		return
	}
	l.Logger.Println(logLevelPrefix[level] + ": " + fmt.Sprintf(format, a...))
}

func (l *StdLogger)Debugf(format string, a ...interface{}) { l.printf(LogDebug, format, a...) }
func (l *StdLogger)Infof(format string, a ...interface{})  { l.printf(LogInfo, format, a...) }
func (l *StdLogger)Errorf(format string, a ...interface{}) { l.printf(LogError, format, a...) }

// NullLogger - for mocking out in tests
type NullLogger struct{}

func (NullLogger)Debugf(format string, a ...interface{}) {}
func (NullLogger)Infof(format string, a ...interface{})  {}
func (NullLogger)Errorf(format string, a ...interface{}) {}

// OrNull lets structs leave their Logger field unset.
func OrNull(l Logger) Logger {
	if l == nil {
		return NullLogger{}
	}
	return l
}
