// Package logging configures the process-wide logrus logger.
//
// The host surface owns the terminal, so logs go to a file by default
// (~/.porthole/porthole.log) through a lumberjack writer. Passing "console"
// as the path sends them to stderr instead, which is what the one-shot CLI
// commands use.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// LogFileName is the name of the log file.
	LogFileName = "porthole.log"
	// LogDirName is the name of the directory containing the log file.
	LogDirName = ".porthole"
	// ConsoleOutput selects stderr instead of a file.
	ConsoleOutput = "console"
	// DefaultLevel is used when no level is configured.
	DefaultLevel = "info"
)

// Options configure Init. Zero rotation values keep lumberjack's defaults,
// which never delete old files.
type Options struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	mu   sync.Mutex
	sink *lumberjack.Logger

	// getLogPath is a function variable to allow overriding in tests.
	getLogPath = defaultGetLogPath
)

// Init installs the formatter, level and output on the standard logrus logger.
func Init(opts Options) error {
	levelName := strings.TrimSpace(opts.Level)
	if levelName == "" {
		levelName = DefaultLevel
	}
	level, err := log.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", levelName, err)
	}

	mu.Lock()
	defer mu.Unlock()
	closeSinkLocked()

	path := strings.TrimSpace(opts.Path)
	if path == ConsoleOutput {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		log.SetLevel(level)
		return nil
	}

	if path == "" {
		path, err = getLogPath()
		if err != nil {
			return fmt.Errorf("determine log path: %w", err)
		}
	}

	//nolint:gosec // G301: User config directory needs standard permissions
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	sink = &lumberjack.Logger{
		Filename:   filepath.ToSlash(path),
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	log.SetOutput(io.Writer(sink))
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	log.SetLevel(level)
	log.WithField("pid", os.Getpid()).Info("log started")
	return nil
}

// Close flushes and closes the file sink, if any.
// Safe to call even if Init was never called.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeSinkLocked()
}

func closeSinkLocked() {
	if sink == nil {
		return
	}
	log.SetOutput(os.Stderr)
	_ = sink.Close()
	sink = nil
}

func defaultGetLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, LogDirName, LogFileName), nil
}
