package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ravoegtlin/molbox-tester/internal/errors"
)

// timeFormat matches the log line layout of the original tool:
// "2006-01-02 15:04:05.000 - LEVEL - message".
const timeFormat = "2006-01-02 15:04:05.000"

// Uninitialized packages log into the void; Init replaces this.
var log = zerolog.Nop()

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

// Init configures the process logger on stdout. Every line renders as
// "<timestamp> - <LEVEL> - <message>"; structured fields follow the message.
func Init() {
	log = newLogger(os.Stdout)
	SetLogLevel(InfoLevel)
}

func newLogger(out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	output := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		TimeFormat: timeFormat,
	}
	output.FormatLevel = func(i interface{}) string {
		level := "???"
		if l, ok := i.(string); ok {
			level = strings.ToUpper(l)
		}
		if level == "WARN" {
			level = "WARNING"
		}

		return "- " + level + " -"
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with the error's code attached when the
// error carries one.
func ErrorWithCode(err error) *LogEvent {
	e := log.Error()
	if code := errors.CodeOf(err); code != "" {
		e = e.Str("error_code", string(code))
	}
	return &LogEvent{e.Err(err)}
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	return &LogEvent{log.Fatal()}
}
