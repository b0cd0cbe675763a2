// Package eventlog writes a local, line-delimited JSON record of sandbox
// executions. The log answers "what ran, under which backend, and how did
// it end" without shipping anything off the host.
package eventlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event being logged
type EventType string

const (
	EventTypeExecutionCompleted EventType = "execution_completed"
	EventTypeExecutionTimedOut  EventType = "execution_timed_out"
	EventTypeExecutionKilled    EventType = "execution_killed"
	EventTypeSpawnFailed        EventType = "spawn_failed"
	EventTypeError              EventType = "error"
)

// Event represents one sandbox execution record
type Event struct {
	Timestamp  time.Time              `json:"timestamp"`
	EventType  EventType              `json:"event_type"`
	Message    string                 `json:"message,omitempty"`
	Backend    string                 `json:"backend,omitempty"`
	Command    string                 `json:"command,omitempty"`
	ExitCode   int                    `json:"exit_code"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Logger represents an event logger
type Logger struct {
	file   *os.File
	writer io.Writer
	mu     sync.Mutex
	active bool

	retentionDays int
}

var (
	globalLogger *Logger
	once         sync.Once
)

// InitializeWithDir sets up the global event logger with a custom log directory.
// retentionDays bounds how long old log files are kept.
func InitializeWithDir(logDir string, retentionDays int) error {
	var initErr error
	once.Do(func() {
		globalLogger = &Logger{retentionDays: retentionDays}
		initErr = globalLogger.init(logDir)
	})
	return initErr
}

// InitializeWithFile sets up the global event logger with a specific file path
func InitializeWithFile(filePath string) error {
	var initErr error
	once.Do(func() {
		globalLogger = &Logger{}
		initErr = globalLogger.initWithFile(filePath)
	})
	return initErr
}

// reinitializeForTest resets and reinitializes the logger for testing purposes
// This should only be used in tests
func reinitializeForTest(logDir string) error {
	if globalLogger != nil {
		globalLogger.Close()
	}

	once = sync.Once{}

	return InitializeWithDir(logDir, 7)
}

// init initializes the logger with the specified directory
func (l *Logger) init(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	// One file per day, append only
	logFileName := time.Now().Format("20060102") + "-cage.log"
	logFilePath := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.file = file
	l.writer = file
	l.active = true

	// Clean up old logs in background
	go l.cleanupOldLogs(logDir)

	return nil
}

// initWithFile initializes the logger with a specific file path
func (l *Logger) initWithFile(filePath string) error {
	dir := filepath.Dir(filePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.file = file
	l.writer = file
	l.active = true

	// No cleanup for custom log files (user manages them)

	return nil
}

// cleanupOldLogs removes log files older than the retention window
func (l *Logger) cleanupOldLogs(logDir string) {
	retentionDays := l.retentionDays
	if retentionDays <= 0 {
		retentionDays = 7
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		// Silently fail if we can't read the directory
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		matched, err := filepath.Match("*-cage.log", name)
		if err != nil || !matched {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

// Log writes an event to the log file
func (l *Logger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = l.writer.Write(append(data, '\n'))
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	if l.file != nil {
		l.file.Sync()
	}

	return nil
}

// Close closes the logger
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active {
		return nil
	}

	l.active = false
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// LogEvent logs an event using the global logger
func LogEvent(event Event) error {
	if globalLogger == nil {
		return nil
	}
	return globalLogger.Log(event)
}

// CloseGlobal closes the global logger
func CloseGlobal() error {
	if globalLogger == nil {
		return nil
	}
	return globalLogger.Close()
}
