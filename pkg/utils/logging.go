package utils

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger returns the process logger. format is "text" or "json".
func NewLogger(out io.Writer, level, format string) (*logrus.Entry, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)

	switch format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q (must be one of: text, json)", format)
	}

	return logrus.NewEntry(logger), nil
}
