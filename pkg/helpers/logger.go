package helpers

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns the process logger: text at debug level in development,
// JSON at info level elsewhere. Every entry carries the app name so the API
// and the worker can share one log stream.
func NewLogger(appName, env string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.AddHook(appHook{app: appName})
	logger.WithField("env", env).Debug("logger initialized")
	return logger
}

type appHook struct{ app string }

func (appHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h appHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["app"]; !ok {
		e.Data["app"] = h.app
	}
	return nil
}
