package utils

import (
	"strings"

	logger "github.com/sirupsen/logrus"
)

// SetupLogger configures the global logrus logger. Unknown levels fall back
// to debug; format is "json" or "text".
func SetupLogger(level, format string) {
	lvl, err := logger.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logger.DebugLevel
	}
	logger.SetLevel(lvl)

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		logger.SetFormatter(&logger.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}
