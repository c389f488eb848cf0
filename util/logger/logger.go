package logger

import (
	"fmt"
	stdlog "log"
	"os"
	"path"
	"path/filepath"

	"github.com/op/go-logging"
)

var format = logging.MustStringFormatter("[%{level}] %{message}")

/*
InitLogger creates and returns a logger suitable for logging
human-readable message. Also returns the path to the log file.
*/
func InitLogger(logDir string, logLevel logging.Level) (*logging.Logger, string) {
	processName := path.Base(os.Args[0])
	filename := fmt.Sprintf("%s.log", processName)
	filename = filepath.Join(logDir, filename)
	writer, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open log file '%s': %v\n", filename, err)
		os.Exit(1)
	}
	log := logging.MustGetLogger(processName)
	logging.SetFormatter(format)
	logBackend := logging.NewLogBackend(writer, "", stdlog.LstdFlags|stdlog.LUTC)
	logging.SetBackend(logBackend)
	logging.SetLevel(logLevel, processName)
	return log, filename
}

// InitStderrLogger returns a logger that writes to stderr. Command-line
// tools use this so that stdout carries only their output.
func InitStderrLogger(logLevel logging.Level) *logging.Logger {
	processName := path.Base(os.Args[0])
	log := logging.MustGetLogger(processName)
	logging.SetFormatter(format)
	logBackend := logging.NewLogBackend(os.Stderr, "", 0)
	logging.SetBackend(logBackend)
	logging.SetLevel(logLevel, processName)
	return log
}

// ParseLevel converts a level name such as "DEBUG" or "info" into a
// logging.Level, defaulting to INFO.
func ParseLevel(name string) logging.Level {
	level, err := logging.LogLevel(name)
	if err != nil {
		return logging.INFO
	}
	return level
}
