package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// LoggerNames lists every logger used in this module
var LoggerNames = []string{"server", "transport", "client", "store", "cluster", "command"}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// levelLabels are the fixed width level columns of a log line
var levelLabels = map[logger.LogLevel]string{
	logger.CRITICAL: "PANIC",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN",
	logger.INFO:     "INFO",
	logger.DEBUG:    "DEBUG",
}

// lineLogger writes "LEVEL | name | message" lines for one named logger
type lineLogger struct {
	name  string
	level logger.LogLevel
	out   *log.Logger
}

func (l *lineLogger) SetLevel(level logger.LogLevel) { l.level = level }

func (l *lineLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *lineLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *lineLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *lineLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

// Panicf logs the message regardless of the level and panics
func (l *lineLogger) Panicf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, message)
	panic(message)
}

func (l *lineLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if level > l.level {
		return
	}
	l.write(level, fmt.Sprintf(format, args...))
}

func (l *lineLogger) write(level logger.LogLevel, message string) {
	l.out.Printf("%-5s | %-9s | %s", levelLabels[level], l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// NewLoggerFactory returns a logger.Factory whose loggers write to w at
// level INFO until SetLevel is called.
func NewLoggerFactory(w io.Writer, flags int) logger.Factory {
	out := log.New(w, "", flags)
	return func(pkgName string) logger.ILogger {
		return &lineLogger{name: pkgName, level: logger.INFO, out: out}
	}
}

// CreateLogger is the factory installed by InitLoggers. Log lines go to stderr
// so that the output of the client commands stays machine readable.
var CreateLogger = NewLoggerFactory(os.Stderr, log.Ldate|log.Ltime)

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// ParseLogLevel converts a configured level name. An empty name means info.
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// InitLoggers installs the custom logger factory and sets the level of all loggers
func InitLoggers(level string) error {
	logLevel, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(logLevel)
	}
	return nil
}
