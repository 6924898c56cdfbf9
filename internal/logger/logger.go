package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls how loggers are built. Zero values fall back to text on stdout at info.
type Options struct {
	Level  string // logrus level name
	Format string // "json" or "text"
	Output string // "stdout", "file" or "both"
	File   string // rotated log file used when Output includes file
}

var (
	mu      sync.Mutex
	opts    = Options{Level: "info", Format: "text", Output: "stdout"}
	loggers = map[string]*logrus.Entry{}
	sink    io.Writer
)

// Init sets the options used by every logger created afterwards.
func Init(o Options) {
	mu.Lock()
	defer mu.Unlock()
	opts = o
	sink = nil
	loggers = map[string]*logrus.Entry{}
}

// Get returns the named component logger, creating it on first use.
func Get(name string) *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[name]; ok {
		return l
	}
	l := newLogger().WithField("component", name)
	loggers[name] = l
	return l
}

func newLogger() *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if opts.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	l.SetOutput(output())
	return l
}

// output is shared by all loggers so the rotated file has a single writer.
func output() io.Writer {
	if sink != nil {
		return sink
	}
	var writers []io.Writer
	if (opts.Output == "file" || opts.Output == "both") && opts.File != "" {
		_ = os.MkdirAll(filepath.Dir(opts.File), 0o755)
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		})
	}
	if opts.Output != "file" || len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}
	if len(writers) == 1 {
		sink = writers[0]
	} else {
		sink = io.MultiWriter(writers...)
	}
	return sink
}
