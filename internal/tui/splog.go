package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// simpleHandler writes messages without timestamps or level prefixes
type simpleHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	debugMode bool
	quiet     *atomic.Bool
}

func (h *simpleHandler) Enabled(_ context.Context, level slog.Level) bool {
	// Debug messages only enabled in debug mode
	if level == slog.LevelDebug {
		return h.debugMode
	}
	return true
}

func (h *simpleHandler) Handle(_ context.Context, record slog.Record) error {
	if h.quiet.Load() {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.writer, record.Message)
	return err
}

func (h *simpleHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *simpleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// LogFileEnv overrides the log file location
const LogFileEnv = "PRREBASE_LOG_FILE"

// GetLogFilePath returns the log file location: $PRREBASE_LOG_FILE, else
// ~/.prrebase/logs/prrebase.log, else prrebase.log in the working directory
func GetLogFilePath() string {
	if customPath := os.Getenv(LogFileEnv); customPath != "" {
		return customPath
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "prrebase.log"
	}
	return filepath.Join(homeDir, ".prrebase", "logs", "prrebase.log")
}

// createLumberjackLogger creates a lumberjack logger with configuration from environment variables
func createLumberjackLogger(logFilePath string) *lumberjack.Logger {
	config := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    1, // megabytes
		MaxBackups: 2,
		MaxAge:     30, // days
		Compress:   false,
	}

	if maxSize, ok := envInt("PRREBASE_LOG_MAX_SIZE"); ok && maxSize > 0 {
		config.MaxSize = maxSize
	}
	if maxBackups, ok := envInt("PRREBASE_LOG_MAX_BACKUPS"); ok && maxBackups >= 0 {
		config.MaxBackups = maxBackups
	}
	if maxAge, ok := envInt("PRREBASE_LOG_MAX_AGE"); ok && maxAge > 0 {
		config.MaxAge = maxAge
	}

	return config
}

func envInt(name string) (int, bool) {
	value := os.Getenv(name)
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// multiHandler fans out log records to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// Splog provides structured logging and output.
// Console output is plain text; the optional log file gets timestamped
// key=value records including any attributes added with With.
type Splog struct {
	logger    *slog.Logger
	writer    io.Writer
	logWriter io.WriteCloser
	quiet     *atomic.Bool
}

// NewSplogWithWriter creates a console-only splog writing to w
func NewSplogWithWriter(w io.Writer, debug bool) *Splog {
	splog, _ := newSplog(w, debug, "")
	return splog
}

// NewSplogWithConfig creates a splog writing console output to w that also
// writes to a rotated log file when logFilePath is set
func NewSplogWithConfig(w io.Writer, logFilePath string, debug bool) (*Splog, error) {
	return newSplog(w, debug || os.Getenv("DEBUG") != "", logFilePath)
}

func newSplog(w io.Writer, debug bool, logFilePath string) (*Splog, error) {
	splog := &Splog{
		writer: w,
		quiet:  &atomic.Bool{},
	}

	handlers := []slog.Handler{&simpleHandler{
		mu:        &sync.Mutex{},
		writer:    w,
		debugMode: debug,
		quiet:     splog.quiet,
	}}

	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		lumberjackLogger := createLumberjackLogger(logFilePath)
		splog.logWriter = lumberjackLogger

		fileHandler := slog.NewTextHandler(lumberjackLogger, &slog.HandlerOptions{
			Level: slog.LevelDebug, // Always log everything to file
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.Attr{Key: a.Key, Value: slog.StringValue(a.Value.Time().Format("2006-01-02 15:04:05.000"))}
				}
				return a
			},
		})
		handlers = append(handlers, fileHandler)
	}

	splog.logger = slog.New(&multiHandler{handlers: handlers})
	return splog, nil
}

// With returns a splog that attaches key/value attributes to file records.
// The returned splog shares output, quiet state and file with s.
func (s *Splog) With(args ...any) *Splog {
	clone := *s
	clone.logger = s.logger.With(args...)
	return &clone
}

// SetQuiet suppresses console output while a full-screen view owns the terminal.
// File logging is unaffected.
func (s *Splog) SetQuiet(quiet bool) {
	s.quiet.Store(quiet)
}

// IsQuiet returns whether the logger is in quiet mode.
func (s *Splog) IsQuiet() bool {
	return s.quiet.Load()
}

func (s *Splog) logf(level slog.Level, prefix, format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.logger.Log(context.Background(), level, prefix+msg)
}

// Info writes an info message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Info(format string, args ...interface{}) {
	s.logf(slog.LevelInfo, "", format, args...)
}

// Newline writes a newline
func (s *Splog) Newline() {
	if !s.IsQuiet() {
		_, _ = fmt.Fprintln(s.writer)
	}
}

// Warn writes a warning message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Warn(format string, args ...interface{}) {
	s.logf(slog.LevelWarn, "⚠️  ", format, args...)
}

// Error writes an error message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Error(format string, args ...interface{}) {
	s.logf(slog.LevelError, "❌ ", format, args...)
}

// Debug writes a debug message
// nolint // format string validation is handled internally via fmt.Sprintf
func (s *Splog) Debug(format string, args ...interface{}) {
	s.logf(slog.LevelDebug, "", format, args...)
}

// Close closes the log file if one was opened
func (s *Splog) Close() error {
	if s.logWriter != nil {
		return s.logWriter.Close()
	}
	return nil
}
