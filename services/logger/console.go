package logsvc

import (
	"log"

	"github.com/trezcool/darasa/core"
)

type consoleLogger struct {
	std   *log.Logger
	debug bool
}

var _ core.Logger = (*consoleLogger)(nil)

// NewConsoleLogger logs to std only; for DEV/TEST where rollbar is off.
func NewConsoleLogger(std *log.Logger, conf *core.Config) core.Logger {
	return &consoleLogger{std: std, debug: conf.Debug}
}

func (l consoleLogger) print(lvl, msg string, args []interface{}) {
	l.std.Printf("%s : %s", lvl, msg)
	for _, arg := range args {
		l.std.Printf("%+v", arg)
	}
}

func (l consoleLogger) Debug(msg string, args ...interface{}) {
	if l.debug {
		l.print("DEBUG", msg, args)
	}
}

func (l consoleLogger) Info(msg string, args ...interface{})  { l.print("INFO", msg, args) }
func (l consoleLogger) Warn(msg string, args ...interface{})  { l.print("WARN", msg, args) }
func (l consoleLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }

func (l consoleLogger) Fatal(msg string, args ...interface{}) {
	l.print("FATAL", msg, args)
	l.std.Fatal(msg)
}
