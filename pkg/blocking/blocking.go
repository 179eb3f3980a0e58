// pkg/blocking/blocking.go - detect a toolbox still running from the tree about to be replaced

package blocking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
)

// ErrProgramRunning is returned when a process runs from the install directory.
var ErrProgramRunning = errors.New("program is running from the install directory")

// Proc is the part of a process relevant for blocking checks.
type Proc struct {
	PID     int32
	Exe     string
	Cmdline string
}

// Lister returns the running processes.
type Lister func() ([]Proc, error)

// SystemProcesses lists processes with gopsutil. Processes whose details
// cannot be read are skipped.
func SystemProcesses() ([]Proc, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to get process list: %w", err)
	}
	var out []Proc
	for _, p := range procs {
		exe, err := p.Exe()
		if err != nil {
			continue
		}
		cmdline, _ := p.Cmdline()
		out = append(out, Proc{PID: p.Pid, Exe: exe, Cmdline: cmdline})
	}
	return out, nil
}

// Checker finds processes started from a directory.
type Checker struct {
	List Lister
}

// New returns a Checker over the system process table.
func New() *Checker {
	return &Checker{List: SystemProcesses}
}

// RunningFrom returns the processes whose executable or command line
// points inside dir.
func (c *Checker) RunningFrom(dir string) ([]Proc, error) {
	if dir == "" {
		return nil, nil
	}
	procs, err := c.List()
	if err != nil {
		return nil, err
	}
	prefix := normalize(dir)
	var running []Proc
	for _, p := range procs {
		if within(normalize(p.Exe), prefix) || strings.Contains(normalize(p.Cmdline), prefix+"/") {
			running = append(running, p)
		}
	}
	return running, nil
}

// Check returns ErrProgramRunning if anything runs from dir. A failing
// process listing is logged and does not block.
func (c *Checker) Check(dir string) error {
	running, err := c.RunningFrom(dir)
	if err != nil {
		logging.Warn("Unable to check running processes", "error", err)
		return nil
	}
	if len(running) == 0 {
		logging.Debug("No blocking processes running", "dir", dir)
		return nil
	}
	pids := make([]string, 0, len(running))
	for _, p := range running {
		pids = append(pids, fmt.Sprintf("%d", p.PID))
	}
	logging.Info("Blocking processes are running", "dir", dir, "pids", strings.Join(pids, ","))
	return fmt.Errorf("%w: %s (pid %s)", ErrProgramRunning, dir, strings.Join(pids, ","))
}

func normalize(p string) string {
	p = strings.ToLower(strings.ReplaceAll(p, `\`, "/"))
	return strings.TrimSuffix(p, "/")
}

func within(path, prefix string) bool {
	if path == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
