package main

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// logger is the process-wide logger. It is usable before InitLogger runs so
// tests and library callers get sane output.
var logger = logrus.New()

// InitLogger configures the process logger. Empty arguments fall back to the
// LOG_LEVEL and LOG_FORMAT environment variables, then to info/text.
func InitLogger(level, format string) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	if strings.ToLower(format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	logger.SetOutput(os.Stdout)
}
