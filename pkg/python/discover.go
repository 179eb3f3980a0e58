// pkg/python/discover.go - locating an installed interpreter

package python

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
)

// Finder searches for an interpreter in order: the remembered path, the
// registry, well-known install roots, then PATH.
type Finder struct {
	Remembered func() (string, bool)
	Registry   func() []string
	Roots      []string
	PipMarker  string // file under Scripts identifying the wanted version
	LookPath   func(file string) (string, error)
}

// NewFinder returns a Finder with the default roots and marker.
func NewFinder(remembered func() (string, bool)) *Finder {
	return &Finder{
		Remembered: remembered,
		Registry:   registryInterpreters,
		Roots:      []string{"C:/", "C:/python/"},
		PipMarker:  "pip3.11.exe",
		LookPath:   exec.LookPath,
	}
}

// Find returns the first valid interpreter.
func (f *Finder) Find() (string, bool) {
	if f.Remembered != nil {
		if p, ok := f.Remembered(); ok && Validate(p) == nil {
			logging.Info("Python path taken from state", "path", p)
			return p, true
		}
	}
	if f.Registry != nil {
		for _, p := range f.Registry() {
			if Validate(p) == nil {
				logging.Info("Python found in registry", "path", p)
				return p, true
			}
		}
	}
	if p, ok := f.scanRoots(); ok {
		logging.Info("Python found in install root", "path", p)
		return p, true
	}
	if f.LookPath != nil {
		for _, name := range []string{"python.exe", "python3", "python"} {
			if p, err := f.LookPath(name); err == nil && Validate(p) == nil {
				logging.Info("Python found on PATH", "path", p)
				return p, true
			}
		}
	}
	logging.Warn("python.exe not found")
	return "", false
}

func (f *Finder) scanRoots() (string, bool) {
	for _, root := range f.Roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || !strings.Contains(strings.ToLower(e.Name()), "python") {
				continue
			}
			dir := filepath.Join(root, e.Name())
			if f.PipMarker != "" {
				if _, err := os.Stat(filepath.Join(dir, "Scripts", f.PipMarker)); err != nil {
					continue
				}
			}
			exe := filepath.Join(dir, "python.exe")
			if Validate(exe) == nil {
				return exe, true
			}
		}
	}
	return "", false
}
