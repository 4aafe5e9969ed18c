package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

func ConsoleLogger(level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return log
}

// FileLogger writes JSON lines to path, creating parent directories as
// needed, and mirrors warnings and above to stderr.
func FileLogger(level logrus.Level, path string) (*logrus.Logger, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	log := logrus.New()
	log.SetLevel(level)
	log.SetOutput(io.MultiWriter(f))
	log.SetFormatter(&logrus.JSONFormatter{})
	log.AddHook(&stderrHook{min: logrus.WarnLevel})
	return log, f, nil
}

type stderrHook struct {
	min logrus.Level
}

func (h *stderrHook) Levels() []logrus.Level {
	levels := make([]logrus.Level, 0, h.min+1)
	for l := logrus.PanicLevel; l <= h.min; l++ {
		levels = append(levels, l)
	}
	return levels
}

func (h *stderrHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	_, err = os.Stderr.WriteString(line)
	return err
}
