package kioku

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// DebugLogger provides opt-in diagnostics for background effects, sync and
// store operations. All methods are safe on a nil receiver, so callers never
// guard their log sites.
type DebugLogger struct {
	mu      sync.Mutex
	enabled bool
	writer  io.Writer
}

// NewDebugLogger creates a debug logger. If logPath is empty, output goes to
// stderr.
func NewDebugLogger(enabled bool, logPath string) (*DebugLogger, error) {
	var writer io.Writer = os.Stderr

	if enabled && logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open debug log: %w", err)
		}
		writer = f
	}

	return &DebugLogger{enabled: enabled, writer: writer}, nil
}

// Close closes the underlying file, if any.
func (l *DebugLogger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if closer, ok := l.writer.(io.Closer); ok && l.writer != os.Stderr {
		return closer.Close()
	}
	return nil
}

// Log writes a timestamped debug message if logging is enabled.
func (l *DebugLogger) Log(format string, args ...any) {
	if l == nil || !l.enabled {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(l.writer, "[%s] [KIOKU DEBUG] %s\n", timestamp, msg)
}

// LogError logs a failed operation with full error details.
func (l *DebugLogger) LogError(operation string, err error) {
	if l == nil || !l.enabled {
		return
	}
	l.Log("ERROR [%s]: %v", operation, err)
}

// LogHTTP logs one backend round trip.
func (l *DebugLogger) LogHTTP(method, url string, statusCode int) {
	if l == nil || !l.enabled {
		return
	}
	l.Log("HTTP %s %s -> %d", method, url, statusCode)
}
