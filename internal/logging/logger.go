// Package logging provides categorized zap loggers for shellsense.
//
// Each subsystem asks for a logger by Category. Until Init is called every category
// resolves to a no-op logger, so library packages may log unconditionally and tests
// stay silent. Categories can be switched off individually through Options.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup and shutdown
	CategoryTracker Category = "tracker" // Shell sequence belief tracking
	CategoryItems   Category = "items"   // Item ledger
	CategorySession Category = "session" // Command execution and round lifecycle
	CategoryAdvice  Category = "advice"  // Advice composition
	CategoryAPI     Category = "api"     // Outbound LLM calls
	CategoryStore   Category = "store"   // Round journal
	CategoryConfig  Category = "config"  // Config load, save and reload
	CategoryUI      Category = "ui"      // Interactive terminal UI
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, text
	File       string          // empty = stderr
	Categories map[string]bool // per-category toggles, missing = enabled
}

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	opts    Options
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Init builds the root logger. verbose forces debug level.
func Init(o Options, verbose bool) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if o.Level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(o.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", o.Level, err)
		}
		level.SetLevel(parsed)
	}
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	if o.Format == "text" {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	if o.File != "" {
		if err := os.MkdirAll(filepath.Dir(o.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{o.File}
		cfg.ErrorOutputPaths = []string{o.File}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	Use(logger, o)
	return logger, nil
}

// Use installs an already-built logger, e.g. zaptest or zap observer loggers in tests.
func Use(logger *zap.Logger, o Options) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = zap.NewNop()
	}
	root = logger
	opts = o
	loggers = make(map[Category]*zap.SugaredLogger)
}

// Get returns the logger for a category, or a no-op logger if the category is disabled.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	l, ok := loggers[category]
	mu.RUnlock()
	if ok {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	if enabled, set := opts.Categories[string(category)]; set && !enabled {
		l = zap.NewNop().Sugar()
	} else {
		l = root.Named(string(category)).Sugar()
	}
	loggers[category] = l
	return l
}

// Sync flushes buffered entries. Errors from syncing stderr are ignored.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
