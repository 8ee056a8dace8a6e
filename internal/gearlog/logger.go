// Package gearlog provides the process-wide structured logger and the
// contextual helpers every component uses instead of ad-hoc WithField calls.
package gearlog

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// InitLogger initializes the structured logger. logLevel falls back to the
// LOG_LEVEL environment variable, then to a level chosen by isDevelopment.
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	log := logrus.New()

	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			if isDevelopment {
				logLevel = "debug"
			} else {
				logLevel = "info"
			}
		}
	}

	if level, err := logrus.ParseLevel(strings.ToLower(logLevel)); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", logLevel).Warn("invalid LOG_LEVEL, using info")
	}

	if !isDevelopment || strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	log.SetOutput(os.Stdout)
	Logger = log
	return log
}

// GetLogger returns the global logger, initializing a default one on first
// use so packages that only need a logger don't have to order their own
// init against the server's.
func GetLogger() *logrus.Logger {
	if Logger == nil {
		return InitLogger("info", false)
	}
	return Logger
}

// WithService tags log lines with the emitting service/component name.
func WithService(name string) *logrus.Entry {
	return GetLogger().WithField("service", name)
}

// WithOptimizationContext tags log lines with a run's identity and the
// objective/combat style driving it.
func WithOptimizationContext(runID, objective, combatStyle string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"optimization_id": runID,
		"objective":       objective,
		"combat_style":    combatStyle,
	})
}

// WithSlotContext tags log lines emitted while the per-slot greedy optimizer
// is working on a specific slot.
func WithSlotContext(runID string, slot string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"optimization_id": runID,
		"slot":            slot,
	})
}

// WithRequestContext tags log lines at the HTTP boundary.
func WithRequestContext(requestID, runID string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"request_id":      requestID,
		"optimization_id": runID,
	})
}
