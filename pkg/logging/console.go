// pkg/logging/console.go - coloured console output for the front ends.

package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGreen  = "\033[32m"
)

// New returns a console Logger for a front end. A verbose console writes
// debug lines to stdout; a quiet one keeps to stderr.
func New(verbose bool) *Logger {
	enableColors()

	l := &Logger{logLevel: LevelInfo}
	out := io.Writer(os.Stderr)
	if verbose {
		l.logLevel = LevelDebug
		out = os.Stdout
	}
	l.logger = log.New(out, "", 0)
	return l
}

// SetOutput redirects the console.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.logger.SetOutput(w)
	l.mu.Unlock()
}

// say writes one timestamped line, wrapped in color unless color is "".
func (l *Logger) say(color, format string, v ...interface{}) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, v...))
	if color != "" {
		line = color + line + colorReset
	}
	l.mu.RLock()
	l.logger.Println(line)
	l.mu.RUnlock()
}

// Printf prints a plain line.
func (l *Logger) Printf(format string, v ...interface{}) { l.say("", format, v...) }

// Info is Printf.
func (l *Logger) Info(format string, v ...interface{}) { l.say("", format, v...) }

// Success prints in green.
func (l *Logger) Success(format string, v ...interface{}) { l.say(colorGreen, format, v...) }

// Warning prints in yellow.
func (l *Logger) Warning(format string, v ...interface{}) { l.say(colorYellow, format, v...) }

// Error prints in red.
func (l *Logger) Error(format string, v ...interface{}) { l.say(colorRed, format, v...) }

// Debug prints in blue, on verbose consoles only.
func (l *Logger) Debug(format string, v ...interface{}) {
	if l.logLevel >= LevelDebug {
		l.say(colorBlue, format, v...)
	}
}

// Fatal prints an error and exits with status 1. The file log is closed first.
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.Error(format, v...)
	CloseLogger()
	os.Exit(1)
}
