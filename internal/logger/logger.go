// Package logger builds the structured logger shared by the server and the scheduler.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mpcredit/financing-engine/internal/config"
)

// New returns a logrus logger configured from LOG_LEVEL and LOG_FORMAT.
func New(cfg config.LoggingConfig) *logrus.Logger {
	logg := logrus.New()
	logg.SetOutput(os.Stdout)

	switch strings.ToLower(cfg.Format) {
	case "text":
		logg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logg.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logg.SetLevel(level)

	return logg
}

// LogError logs err with the module/function that produced it.
func LogError(logger logrus.FieldLogger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
