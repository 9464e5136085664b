/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Logging system for protoinfer. Provides structured logging with rotated log
files, multiple output formats, and helpers for the events the inference pipeline
reports. Supports JSON, text, and custom formats.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kleascm/protoinfer/pkg/core"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
	LogLevelFatal   LogLevel = "fatal"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
)

// LoggerConfig holds the configuration for the logger
// File output is disabled when OutputDir is empty
type LoggerConfig struct {
	Level      LogLevel  `json:"level" mapstructure:"level"`
	Format     LogFormat `json:"format" mapstructure:"format"`
	OutputDir  string    `json:"output_dir" mapstructure:"output_dir"`
	FileName   string    `json:"file_name" mapstructure:"file_name"`
	MaxSize    int       `json:"max_size" mapstructure:"max_size"` // in megabytes
	MaxBackups int       `json:"max_backups" mapstructure:"max_backups"`
	MaxAge     int       `json:"max_age" mapstructure:"max_age"` // in days, 0 keeps everything
	Compress   bool      `json:"compress" mapstructure:"compress"`
	Console    bool      `json:"console" mapstructure:"console"`
	Timestamp  bool      `json:"timestamp" mapstructure:"timestamp"`
	Caller     bool      `json:"caller" mapstructure:"caller"`
	Colors     bool      `json:"colors" mapstructure:"colors"`
}

// DefaultLoggerConfig returns console-only text logging at info level
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:      LogLevelInfo,
		Format:     LogFormatText,
		FileName:   "protoinfer.log",
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Console:    true,
		Timestamp:  true,
		Colors:     true,
	}
}

// Validate checks the LoggerConfig for invalid values.
// Returns an error if the config is invalid, or nil if valid.
func (c *LoggerConfig) Validate() error {
	if c.OutputDir != "" {
		if c.FileName == "" {
			return fmt.Errorf("file_name must not be empty when output_dir is set")
		}
		if c.MaxSize <= 0 {
			return fmt.Errorf("max_size must be positive")
		}
	}
	if c.MaxBackups < 0 {
		return fmt.Errorf("max_backups must not be negative")
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("max_age must not be negative")
	}
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom:
		// ok
	default:
		return fmt.Errorf("unsupported log format: %s", c.Format)
	}
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelFatal:
		// ok
	default:
		return fmt.Errorf("unsupported log level: %s", c.Level)
	}
	return nil
}

// Logger provides logging for the CLI and the query server
type Logger struct {
	config    *LoggerConfig
	logger    *logrus.Logger
	rotator   *lumberjack.Logger
	startTime time.Time
}

// NewLogger creates a new logger instance
func NewLogger(config *LoggerConfig) (*Logger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	l := &Logger{
		config:    config,
		logger:    logrus.New(),
		startTime: time.Now(),
	}

	if err := l.setup(); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	return l, nil
}

// setup configures the logger with the given configuration
func (l *Logger) setup() error {
	level, err := logrus.ParseLevel(string(l.config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.logger.SetLevel(level)
	l.logger.SetReportCaller(l.config.Caller)

	if err := l.setFormatter(); err != nil {
		return err
	}

	return l.setupOutput()
}

// setFormatter configures the log formatter
func (l *Logger) setFormatter() error {
	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		filename := filepath.Base(f.File)
		return "", fmt.Sprintf("%s:%d", filename, f.Line)
	}

	switch l.config.Format {
	case LogFormatJSON:
		l.logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			DisableTimestamp: !l.config.Timestamp,
			CallerPrettyfier: callerPrettyfier,
		})

	case LogFormatText:
		l.logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    l.config.Timestamp,
			DisableTimestamp: !l.config.Timestamp,
			TimestampFormat:  time.RFC3339,
			ForceColors:      l.config.Colors,
			DisableColors:    !l.config.Colors,
			CallerPrettyfier: callerPrettyfier,
		})

	case LogFormatCustom:
		l.logger.SetFormatter(&CustomFormatter{
			Timestamp: l.config.Timestamp,
			Caller:    l.config.Caller,
			Colors:    l.config.Colors,
		})

	default:
		return fmt.Errorf("unsupported log format: %s", l.config.Format)
	}

	return nil
}

// setupOutput tees console and rotated file output
func (l *Logger) setupOutput() error {
	var writers []io.Writer
	if l.config.Console {
		writers = append(writers, os.Stdout)
	}

	if l.config.OutputDir != "" {
		if err := os.MkdirAll(l.config.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		l.rotator = &lumberjack.Logger{
			Filename:   filepath.Join(l.config.OutputDir, l.config.FileName),
			MaxSize:    l.config.MaxSize,
			MaxBackups: l.config.MaxBackups,
			MaxAge:     l.config.MaxAge,
			Compress:   l.config.Compress,
		}
		writers = append(writers, l.rotator)
	}

	switch len(writers) {
	case 0:
		l.logger.SetOutput(io.Discard)
	case 1:
		l.logger.SetOutput(writers[0])
	default:
		l.logger.SetOutput(io.MultiWriter(writers...))
	}

	if l.rotator != nil {
		l.logger.WithFields(logrus.Fields{
			"start_time": l.startTime.Format(time.RFC3339),
			"log_file":   l.rotator.Filename,
			"level":      l.config.Level,
			"format":     l.config.Format,
		}).Info("protoinfer logging system initialized")
	}

	return nil
}

// GetLogger returns the underlying logrus logger
func (l *Logger) GetLogger() *logrus.Logger {
	return l.logger
}

// Component returns an entry tagged with the emitting component
func (l *Logger) Component(name string) *logrus.Entry {
	return l.logger.WithField("component", name)
}

// LogFile returns the path of the active log file, or "" for console-only logging
func (l *Logger) LogFile() string {
	if l.rotator == nil {
		return ""
	}
	return l.rotator.Filename
}

// Rotate forces the log file to roll over
func (l *Logger) Rotate() error {
	if l.rotator == nil {
		return nil
	}
	return l.rotator.Rotate()
}

// Pipeline logging methods

// LogIngest logs a loaded message source
func (l *Logger) LogIngest(source string, messages int, bytes int) {
	l.logger.WithFields(logrus.Fields{
		"component": "ingest",
		"source":    source,
		"messages":  messages,
		"bytes":     bytes,
	}).Info("Messages loaded")
}

// LogRun logs the outcome of a clustering run
func (l *Logger) LogRun(stats core.EngineStats, clusters int) {
	l.logger.WithFields(logrus.Fields{
		"component":        "engine",
		"clusters":         clusters,
		"iterations":       stats.Iterations,
		"pair_evaluations": stats.PairEvaluations,
		"merges":           stats.Merges,
		"orphans_folded":   stats.OrphansFolded,
		"mismatches":       stats.Mismatches,
		"duration":         stats.Duration,
	}).Info("Clustering finished")
}

// LogRequest logs one served API request
func (l *Logger) LogRequest(method, path string, status int, duration time.Duration) {
	entry := l.logger.WithFields(logrus.Fields{
		"component": "api",
		"method":    method,
		"path":      path,
		"status":    status,
		"duration":  duration,
	})
	if status >= 500 {
		entry.Error("Request failed")
		return
	}
	entry.Info("Request served")
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	if l.rotator == nil {
		return nil
	}
	if l.config.Console {
		l.logger.SetOutput(os.Stdout)
	} else {
		l.logger.SetOutput(io.Discard)
	}
	if err := l.rotator.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}
