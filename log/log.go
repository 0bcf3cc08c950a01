// Package log hands out per-component zerolog loggers backed by rotating
// files in a shared log directory. Components receive their logger at
// construction; nothing in this package is written to at import time.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB  = 5
	maxBackups = 3
)

var (
	mu      sync.Mutex
	dir     string
	writers []*lumberjack.Logger
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: LISTEN_LOG_PATH environment variable
	envPath := os.Getenv("LISTEN_LOG_PATH")
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func SetDir(d string) {
	mu.Lock()
	dir = d
	mu.Unlock()
}

func Dir() string {
	mu.Lock()
	defer mu.Unlock()
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Level reads LOG_LEVEL from the environment. Unknown or empty values
// fall back to info.
func Level() zerolog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a logger writing to <dir>/<component>.log, rotated at
// 5 MB with 3 backups kept. If no directory has been set the OS default
// is resolved; when even that fails the logger is a no-op rather than
// an error, since logging must never block the tool itself.
func New(component string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if dir == "" {
		d, err := getDefaultDir()
		if err != nil {
			return zerolog.Nop()
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return zerolog.Nop()
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(dir, component+".log"),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	writers = append(writers, w)

	console := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	return zerolog.New(console).
		Level(Level()).
		With().Timestamp().Int("pid", os.Getpid()).
		Logger()
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	for _, w := range writers {
		w.Close()
	}
	writers = nil
}
