package logging

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the level and destination of the logger
type Options struct {
	Level   string
	File    string
	MaxSize int
}

// New builds a JSON logger. An empty File or "stdout" logs to standard
// output, anything else is a lumberjack rotated file.
func New(opts Options) (*logrus.Logger, error) {
	if opts.Level == "" {
		opts.Level = "info"
	}
	if opts.MaxSize == 0 {
		opts.MaxSize = 50
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if opts.File != "" && opts.File != "stdout" {
		out = &lumberjack.Logger{
			Filename: opts.File,
			MaxSize:  opts.MaxSize, // MB
			Compress: true,
		}
	}

	return &logrus.Logger{
		Out: out,
		Formatter: &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		},
		Hooks: make(logrus.LevelHooks),
		Level: level,
	}, nil
}
