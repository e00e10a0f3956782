package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

func init() {
	// Diagnostics go to stderr so stdout stays clean for report
	// artifacts (console/json/csv publishers).
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.999Z07:00",
		FullTimestamp:   true,
	})
	logrus.SetLevel(logrus.InfoLevel)
}

// InitLogger sets the global log level from its string name.
func InitLogger(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(logLevel)
	return nil
}
