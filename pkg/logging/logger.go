package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Logger writes component-tagged entries to the session log.
// All loggers in the process share one file: <dir>/<session-id>-stylebot.log,
// where dir defaults to ~/.stylebot/logs.
//
// The file is opened on first write, so package-level loggers created in
// init() still honour a directory set later through Configure.
type Logger struct {
	component string
}

// sink is the destination shared by every Logger.
type sink struct {
	mu     sync.Mutex
	dir    string
	path   string
	out    io.Writer
	file   *os.File
	failed bool
}

var (
	// Global session ID for the current process
	sessionID     string
	sessionIDOnce sync.Once

	shared = &sink{}

	debugEnabled atomic.Bool
)

func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

func defaultLogDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".stylebot", "logs"), nil
}

// Configure sets the directory log files are written to. An open log file
// is closed; the next write reopens in the new location.
func Configure(dir string) error {
	if dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	shared.mu.Lock()
	defer shared.mu.Unlock()
	shared.closeLocked()
	shared.dir = dir
	shared.failed = false
	return nil
}

// SetOutput sends every entry to w instead of a file. Passing nil restores
// file logging.
func SetOutput(w io.Writer) {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	shared.closeLocked()
	shared.out = w
}

// SetDebug toggles emission of Debugf entries. Debug output is off by default.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// Close closes the shared log file. Safe to call multiple times.
func Close() error {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	return shared.closeLocked()
}

func (s *sink) closeLocked() error {
	var err error
	if s.file != nil {
		err = s.file.Close()
		s.file = nil
		s.out = nil
	}
	return err
}

// writerLocked returns the current destination, opening the log file on
// first use. Failures fall back to stderr and are reported once.
func (s *sink) writerLocked() io.Writer {
	if s.out != nil {
		return s.out
	}
	if s.failed {
		return os.Stderr
	}

	dir := s.dir
	if dir == "" {
		d, err := defaultLogDir()
		if err != nil {
			return s.fallbackLocked(err)
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return s.fallbackLocked(fmt.Errorf("failed to create log directory: %w", err))
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-stylebot.log", getSessionID()))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return s.fallbackLocked(fmt.Errorf("failed to open log file: %w", err))
	}

	s.file = file
	s.out = file
	s.path = path
	return file
}

func (s *sink) fallbackLocked(err error) io.Writer {
	s.failed = true
	fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize file logging: %v\n", err)
	fmt.Fprintf(os.Stderr, "Falling back to stderr logging\n")
	return os.Stderr
}

// NewLogger creates a logger for a specific component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// formatLogEntry creates a structured log entry with timestamp, component, and level
func (l *Logger) formatLogEntry(level, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

func (l *Logger) write(level, format string, v ...interface{}) {
	entry := l.formatLogEntry(level, fmt.Sprintf(format, v...))

	shared.mu.Lock()
	defer shared.mu.Unlock()
	fmt.Fprintln(shared.writerLocked(), entry)
}

// Debugf logs a debug-level message when debug output is enabled.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	l.write("DEBUG", format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write("INFO", format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write("WARN", format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write("ERROR", format, v...)
}

// Component returns the component tag written with every entry.
func (l *Logger) Component() string {
	return l.component
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// LogPath returns the path of the open log file, or "" when none is open.
func LogPath() string {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	if shared.file == nil {
		return ""
	}
	return shared.path
}
