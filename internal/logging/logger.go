// Package logging provides the subsystem loggers used across reaktor.
//
// Levels and format are read once from the environment:
//
//	# router and acceptor at debug, everything else at info
//	REAKTOR_LOG_LEVEL=acceptor=debug,conductor=debug,info
//
//	# emit JSON instead of text
//	REAKTOR_LOG_FORMAT=json
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	loggers sync.Map // subsystem -> *slog.Logger

	outputMu sync.RWMutex
	output   io.Writer = os.Stderr

	configOnce sync.Once
	config     Config
)

// Config holds the parsed logging environment.
type Config struct {
	DefaultLevel    slog.Level
	SubsystemLevels map[string]slog.Level
	JSON            bool
}

// LevelFor returns the level configured for subsystem.
func (c Config) LevelFor(subsystem string) slog.Level {
	if level, ok := c.SubsystemLevels[subsystem]; ok {
		return level
	}
	return c.DefaultLevel
}

// ParseConfig parses REAKTOR_LOG_LEVEL and REAKTOR_LOG_FORMAT style values.
func ParseConfig(levels, format string) Config {
	cfg := Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
		JSON:            strings.EqualFold(format, "json"),
	}

	for _, part := range strings.Split(levels, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if subsystem, level, ok := strings.Cut(part, "="); ok {
			if lvl, ok := parseLevel(level); ok {
				cfg.SubsystemLevels[strings.TrimSpace(subsystem)] = lvl
			}
			continue
		}
		if lvl, ok := parseLevel(part); ok {
			cfg.DefaultLevel = lvl
		}
	}
	return cfg
}

func parseLevel(s string) (slog.Level, bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, false
	}
	return level, true
}

func configFromEnv() Config {
	configOnce.Do(func() {
		config = ParseConfig(os.Getenv("REAKTOR_LOG_LEVEL"), os.Getenv("REAKTOR_LOG_FORMAT"))
	})
	return config
}

// Logger returns the logger of subsystem. Repeated calls return the same logger.
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := configFromEnv()
	opts := &slog.HandlerOptions{Level: cfg.LevelFor(subsystem)}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(writer{}, opts)
	} else {
		handler = slog.NewTextHandler(writer{}, opts)
	}

	l, _ := loggers.LoadOrStore(subsystem, slog.New(handler).With("subsystem", subsystem))
	return l.(*slog.Logger)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// SetOutput redirects every subsystem logger, including ones already created.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	output = w
	outputMu.Unlock()
}

// writer forwards to the current output so SetOutput applies retroactively.
type writer struct{}

func (writer) Write(p []byte) (int, error) {
	outputMu.RLock()
	w := output
	outputMu.RUnlock()
	return w.Write(p)
}
