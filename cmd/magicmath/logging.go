package main

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func newLogger(cfg config, out io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "LOG_LEVEL")
	}
	l.SetLevel(lvl)

	switch cfg.LogFormat {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	return l, nil
}
