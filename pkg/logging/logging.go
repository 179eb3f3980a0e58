// pkg/logging/logging.go - structured logging for the SHARKtools installer
//
// The package keeps one process-wide logger. Every message goes to the
// main install.log (rotated by lumberjack) in the classic
// "[time] LEVEL message key=value" format, optionally mirrored to the
// console, and optionally to an events.jsonl file for tooling.

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity of the log message.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the string representation of the LogLevel.
func (ll LogLevel) String() string {
	switch ll {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string to a LogLevel. Unknown values give LevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "DEBUG":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// LogEntry is one line of the events.jsonl file.
type LogEntry struct {
	Timestamp  string                 `json:"timestamp"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Component  string                 `json:"component"`
	SessionID  string                 `json:"session_id"`
	Hostname   string                 `json:"hostname"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// LoggerConfig holds configuration for the logger.
type LoggerConfig struct {
	Dir           string   // Directory holding install.log and events.jsonl
	Level         LogLevel // Most verbose level written
	Component     string   // Component name stamped on structured entries
	SessionID     string   // Generated when empty
	MaxSizeMB     int      // Rotation size of install.log
	MaxBackups    int      // Rotated files kept
	EnableJSON    bool     // Write events.jsonl
	EnableConsole bool     // Mirror the main log to Console
	Console       io.Writer
}

// Logger encapsulates the installer logging functionality.
type Logger struct {
	mu       sync.RWMutex
	logger   *log.Logger
	logLevel LogLevel
	logFile  *lumberjack.Logger
	jsonFile *os.File
	logPath  string
	config   LoggerConfig
	hostname string
}

var (
	instance *Logger
	once     sync.Once
)

// DefaultConfig returns the settings used by the front ends.
func DefaultConfig(dir string) LoggerConfig {
	return LoggerConfig{
		Dir:           dir,
		Level:         LevelInfo,
		Component:     "sharkinstall",
		MaxSizeMB:     5,
		MaxBackups:    7,
		EnableJSON:    true,
		EnableConsole: false,
	}
}

// Init initializes the process-wide Logger. Only the first call has an effect.
func Init(cfg LoggerConfig) error {
	var initErr error
	once.Do(func() {
		instance, initErr = newLogger(cfg)
	})
	return initErr
}

// ReInit closes the current logger and replaces it with a new one.
func ReInit(cfg LoggerConfig) error {
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	once.Do(func() {})
	old := instance
	instance = l
	if old != nil {
		old.close()
	}
	return nil
}

func newLogger(cfg LoggerConfig) (*Logger, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("log directory not set")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", cfg.Dir, err)
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Component == "" {
		cfg.Component = "sharkinstall"
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	l := &Logger{
		logLevel: cfg.Level,
		config:   cfg,
		hostname: hostname,
		logPath:  filepath.Join(cfg.Dir, "install.log"),
	}
	l.logFile = &lumberjack.Logger{
		Filename:   filepath.ToSlash(l.logPath),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}

	if cfg.EnableJSON {
		f, err := os.OpenFile(filepath.Join(cfg.Dir, "events.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open JSON log file: %w", err)
		}
		l.jsonFile = f
	}

	var out io.Writer = l.logFile
	if cfg.EnableConsole {
		console := cfg.Console
		if console == nil {
			console = os.Stdout
		}
		out = io.MultiWriter(console, l.logFile)
	}
	l.logger = log.New(out, "", 0)

	l.logMessage(LevelInfo, fmt.Sprintf("Installation started at: %s", time.Now().Format("2006-01-02 15:04")), "session", cfg.SessionID)
	return l, nil
}

func (l *Logger) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile != nil {
		if err := l.logFile.Close(); err != nil {
			fmt.Printf("Failed to close main log file: %v\n", err)
		}
		l.logFile = nil
	}
	if l.jsonFile != nil {
		if err := l.jsonFile.Close(); err != nil {
			fmt.Printf("Failed to close JSON log file: %v\n", err)
		}
		l.jsonFile = nil
	}
	l.logger = nil
}

// CloseLogger closes all log files if they're open.
func CloseLogger() {
	if instance == nil {
		return
	}
	instance.close()
}

// CurrentLogFile returns the path of the main log file, or "" before Init.
func CurrentLogFile() string {
	if instance == nil {
		return ""
	}
	instance.mu.RLock()
	defer instance.mu.RUnlock()
	return instance.logPath
}

// GetSessionID returns the current session ID.
func GetSessionID() string {
	if instance == nil {
		return ""
	}
	instance.mu.RLock()
	defer instance.mu.RUnlock()
	return instance.config.SessionID
}

// SetLevel changes the most verbose level written.
func SetLevel(level LogLevel) {
	if instance == nil {
		return
	}
	instance.mu.Lock()
	defer instance.mu.Unlock()
	instance.logLevel = level
}

func (l *Logger) logMessage(level LogLevel, message string, keyValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logger == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: %s %s %v\n", level.String(), message, keyValues)
		return
	}
	if level > l.logLevel {
		return
	}

	now := time.Now()
	l.writeMainLog(now, level, message, keyValues)
	if l.jsonFile != nil {
		l.writeJSONLog(now, level, message, keyValues)
	}
}

// writeMainLog writes to install.log in the traditional format.
func (l *Logger) writeMainLog(now time.Time, level LogLevel, message string, keyValues []interface{}) {
	line := fmt.Sprintf("[%s] %-5s %s", now.Format("2006-01-02 15:04:05"), level.String(), message)

	// Long key/value lists are easier to read one per line.
	multiline := len(keyValues)/2 > 4
	for i := 0; i+1 < len(keyValues); i += 2 {
		if multiline {
			line += fmt.Sprintf("\n        %v: %v", keyValues[i], keyValues[i+1])
		} else {
			line += fmt.Sprintf(" %v=%v", keyValues[i], keyValues[i+1])
		}
	}

	if level == LevelError {
		line = "\n----------------------------------------\n" + line
	}
	l.logger.Println(line)
}

func (l *Logger) writeJSONLog(now time.Time, level LogLevel, message string, keyValues []interface{}) {
	entry := LogEntry{
		Timestamp: now.Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
		Component: l.config.Component,
		SessionID: l.config.SessionID,
		Hostname:  l.hostname,
	}
	if len(keyValues) > 1 {
		entry.Properties = make(map[string]interface{}, len(keyValues)/2)
		for i := 0; i+1 < len(keyValues); i += 2 {
			v := keyValues[i+1]
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			entry.Properties[fmt.Sprintf("%v", keyValues[i])] = v
		}
	}
	if data, err := json.Marshal(entry); err == nil {
		l.jsonFile.Write(append(data, '\n'))
	}
}

// Info logs informational messages.
func Info(message string, keyValues ...interface{}) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: INFO %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelInfo, message, keyValues...)
}

// Debug logs debug messages.
func Debug(message string, keyValues ...interface{}) {
	if instance == nil {
		return
	}
	instance.logMessage(LevelDebug, message, keyValues...)
}

// Warn logs warning messages.
func Warn(message string, keyValues ...interface{}) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: WARN %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelWarn, message, keyValues...)
}

// Error logs error messages.
func Error(message string, keyValues ...interface{}) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: ERROR %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelError, message, keyValues...)
}

// Step logs the start or end of one installation step with a status.
func Step(step, status string, keyValues ...interface{}) {
	kv := append([]interface{}{"step", step, "status", status}, keyValues...)
	level := LevelInfo
	if status == "failed" {
		level = LevelError
	}
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: %s step %v\n", level.String(), kv)
		return
	}
	instance.logMessage(level, fmt.Sprintf("Step %s %s", step, status), kv...)
}
