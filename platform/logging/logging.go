package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Init configures the process-wide logger. LOG_LEVEL and LOG_FORMAT come
// straight from the environment so docker-compose can flip them.
func Init() {
	logrus.SetOutput(os.Stdout)

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// ForGame returns an entry tagged with the game uid so one game's turn
// trace can be grepped out of the interleaved output.
func ForGame(gameID string) *logrus.Entry {
	return logrus.WithField("game", gameID)
}
