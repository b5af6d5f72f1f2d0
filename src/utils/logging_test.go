package utils

import (
	"testing"

	logger "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	defer SetupLogger("info", "text")

	SetupLogger("WARN", "json")
	assert.Equal(t, logger.WarnLevel, logger.GetLevel())
	_, isJSON := logger.StandardLogger().Formatter.(*logger.JSONFormatter)
	assert.True(t, isJSON)

	SetupLogger("nonsense", "")
	assert.Equal(t, logger.DebugLevel, logger.GetLevel())
	_, isText := logger.StandardLogger().Formatter.(*logger.TextFormatter)
	assert.True(t, isText)
}
