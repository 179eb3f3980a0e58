// pkg/reporter/reporter.go - progress reporting from the installer to its front end

package reporter

import (
	"fmt"
	"sync"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
)

// Reporter receives progress while an install runs.
type Reporter interface {
	Message(txt string)
	Detail(txt string)
	Percent(pct int) // -1 = indeterminate
	ShowLog(path string)
	Error(err error)
	Done(txt string)
}

// ConsoleReporter prints progress with the coloured console logger.
type ConsoleReporter struct {
	mu      sync.Mutex
	console *logging.Logger
	last    int
}

// NewConsoleReporter returns a reporter writing to console.
func NewConsoleReporter(console *logging.Logger) *ConsoleReporter {
	return &ConsoleReporter{console: console, last: -1}
}

func (r *ConsoleReporter) Message(txt string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.console.Info("%s", txt)
	logging.Info("Status message", "data", txt)
}

func (r *ConsoleReporter) Detail(txt string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.console.Debug("%s", txt)
	logging.Debug("Status detail", "data", txt)
}

// Percent prints only when the value changes.
func (r *ConsoleReporter) Percent(pct int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pct < 0 || pct == r.last {
		return
	}
	r.last = pct
	r.console.Printf("[%3d%%]", pct)
}

func (r *ConsoleReporter) ShowLog(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.console.Info("Log: %s", path)
}

func (r *ConsoleReporter) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.console.Error("%v", err)
}

func (r *ConsoleReporter) Done(txt string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.console.Success("%s", txt)
}

// NoOpReporter implements Reporter but does nothing.
type NoOpReporter struct{}

// NewNoOpReporter creates a new no-op reporter.
func NewNoOpReporter() *NoOpReporter {
	return &NoOpReporter{}
}

func (r *NoOpReporter) Message(txt string)  {}
func (r *NoOpReporter) Detail(txt string)   {}
func (r *NoOpReporter) Percent(pct int)     {}
func (r *NoOpReporter) ShowLog(path string) {}
func (r *NoOpReporter) Error(err error)     {}
func (r *NoOpReporter) Done(txt string)     {}

// Recorder keeps every reported event, in order.
type Recorder struct {
	mu     sync.Mutex
	Events []string
}

func (r *Recorder) add(kind, txt string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, kind+": "+txt)
}

func (r *Recorder) Message(txt string)  { r.add("message", txt) }
func (r *Recorder) Detail(txt string)   { r.add("detail", txt) }
func (r *Recorder) Percent(pct int)     { r.add("percent", fmt.Sprint(pct)) }
func (r *Recorder) ShowLog(path string) { r.add("log", path) }
func (r *Recorder) Error(err error)     { r.add("error", err.Error()) }
func (r *Recorder) Done(txt string)     { r.add("done", txt) }
