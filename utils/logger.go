package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  *logrus.Logger
	ErrorLogger *logrus.Logger
)

func init() {
	// Usable before InitLogger runs (tests, CLI flag parsing).
	InitLogger("info", "text")
}

// InitLogger builds the stdout info logger and the stderr error logger.
// format is "text" or "json"; an unknown level falls back to info.
func InitLogger(level, format string) {
	InfoLogger = logrus.New()
	ErrorLogger = logrus.New()

	InfoLogger.SetOutput(os.Stdout)
	ErrorLogger.SetOutput(os.Stderr)

	var formatter logrus.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}
	if strings.EqualFold(format, "json") {
		formatter = &logrus.JSONFormatter{}
	}
	InfoLogger.SetFormatter(formatter)
	ErrorLogger.SetFormatter(formatter)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	InfoLogger.SetLevel(lvl)
	ErrorLogger.SetLevel(logrus.ErrorLevel)
	if lvl >= logrus.DebugLevel {
		// debug/trace also opens up warnings on the error stream
		ErrorLogger.SetLevel(logrus.WarnLevel)
	}
}
