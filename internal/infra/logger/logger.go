package logger

import (
	"io"
	"os"
	"time"

	"landten/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. Packages take a *logrus.Entry from Component
// instead of using it directly.
var Log = logrus.New()

// Init applies LOG_LEVEL and ENVIRONMENT to Log. An unknown level falls back to info.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	if cfg.IsProduction() {
		Log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.DateTime})
	}

	if err != nil {
		Log.WithError(err).Warnf("Unknown log level %q, using info", cfg.LogLevel)
	}
	Log.WithFields(logrus.Fields{"level": level.String(), "environment": cfg.Environment}).Debug("Logger ready")
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

// Discard returns an entry that writes nowhere.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
