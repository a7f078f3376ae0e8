// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Params selects the log format and destination.
type Params struct {
	Level  string
	JSON   bool
	File   string
	Stdout bool
}

// Setup configures the standard logrus logger and returns a closer for the
// log file, if any.
func Setup(params Params) io.Closer {
	return setup(logrus.StandardLogger(), params, os.Stdout)
}

func setup(logger *logrus.Logger, params Params, stdout io.Writer) io.Closer {
	if params.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.SetLevel(GetLevel(params.Level))

	if params.File == "" {
		logger.SetOutput(stdout)
		return nopCloser{}
	}

	file := params.File
	if !strings.HasSuffix(file, ".log") {
		file += ".log"
	}

	rotating := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		LocalTime:  false,
		Compress:   true,
	}

	if params.Stdout {
		logger.SetOutput(teeWriter{rotating, stdout})
	} else {
		logger.SetOutput(rotating)
	}
	return rotating
}

// GetLevel parses a level name. Unknown names fall back to info.
func GetLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
