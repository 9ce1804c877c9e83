// Package logging provides config-driven categorized file-based logging for claimprobe.
// Logs are written to <dir>/.claimprobe/logs/ with separate files per category.
// Logging is controlled by logging.debug_mode in the config - when false, no logs are written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"claimprobe/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot   Category = "boot"   // Startup, config resolution
	CategoryAuth   Category = "auth"   // Token acquisition
	CategoryAPI    Category = "api"    // Every HTTP exchange
	CategorySearch Category = "search" // Claim search and fetch
	CategoryBulk   Category = "bulk"   // Upload, polling, downloads
	CategoryCSV    Category = "csv"    // CSV/JSON artifacts
	CategoryReport Category = "report" // Consistency findings
)

// Logger wraps a zap sugared logger bound to one category file.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	settings  config.LoggingConfig
	level     zapcore.Level
	configMu  sync.RWMutex
)

// Initialize sets up the logging directory from the logging config.
// Should be called once at startup with the output directory.
func Initialize(dir string, cfg config.LoggingConfig) error {
	if dir == "" {
		return fmt.Errorf("output directory required")
	}

	configMu.Lock()
	settings = cfg
	level = parseLevel(cfg.Level)
	configMu.Unlock()

	if !cfg.DebugMode {
		return nil // Silent no-op outside debug mode
	}

	logsDir = filepath.Join(dir, ".claimprobe", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== claimprobe logging initialized ===")
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", level)
	if len(cfg.Categories) == 0 {
		boot.Info("All categories enabled (no category filter)")
	}

	return nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return settings.IsCategoryEnabled(string(category))
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	configMu.RLock()
	jsonFormat := settings.JSONFormat
	lvl := level
	configMu.RUnlock()

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if jsonFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(file), lvl)
	l := &Logger{
		category: category,
		file:     file,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
	}
	loggers[category] = l

	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// Fields writes a message with structured key-value pairs at info level.
func (l *Logger) Fields(msg string, keysAndValues ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infow(msg, keysAndValues...)
}

// CloseAll flushes and closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// Auth logs to the auth category
func Auth(format string, args ...interface{}) {
	Get(CategoryAuth).Info(format, args...)
}

// API logs to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// Search logs to the search category
func Search(format string, args ...interface{}) {
	Get(CategorySearch).Info(format, args...)
}

// SearchDebug logs debug to the search category
func SearchDebug(format string, args ...interface{}) {
	Get(CategorySearch).Debug(format, args...)
}

// Bulk logs to the bulk category
func Bulk(format string, args ...interface{}) {
	Get(CategoryBulk).Info(format, args...)
}

// BulkDebug logs debug to the bulk category
func BulkDebug(format string, args ...interface{}) {
	Get(CategoryBulk).Debug(format, args...)
}

// CSV logs to the csv category
func CSV(format string, args ...interface{}) {
	Get(CategoryCSV).Info(format, args...)
}

// Report logs to the report category
func Report(format string, args ...interface{}) {
	Get(CategoryReport).Info(format, args...)
}
