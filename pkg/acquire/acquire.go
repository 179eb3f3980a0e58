// pkg/acquire/acquire.go - fetching program, plugins and libraries into the install tree

package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/sharksmhi/sharktools-install/pkg/config"
	"github.com/sharksmhi/sharktools-install/pkg/logging"
	"github.com/sharksmhi/sharktools-install/pkg/scope"
	"github.com/sharksmhi/sharktools-install/pkg/selection"
	"github.com/sharksmhi/sharktools-install/pkg/wheel"
)

// Request describes what to fetch and where it goes.
type Request struct {
	Root       *scope.Root
	InstallDir string
	ProgramDir string // <install>/SHARKtools
	PluginsDir string // <program>/plugins
	TempDir    string
	Program    string
	Plugins    selection.Selection
	Libraries  []string
	Repos      []config.Repo
	Target     wheel.Target // interpreter that plugin wheels must install into
}

// Result reports what was acquired.
type Result struct {
	Acquired    []string
	SourceRoots []string // directories registered in the venv .pth file
	Wheels      []string // wheel files to install
}

// Strategy is one way of acquiring sources.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context, req Request) (*Result, error)
}

// LibraryDir is where library name lives inside the program directory.
func (r Request) LibraryDir(name string) string {
	return filepath.Join(r.ProgramDir, name)
}

// PluginDir is where plugin name lives.
func (r Request) PluginDir(name string) string {
	return filepath.Join(r.PluginsDir, name)
}

const savedDirName = "_saved"

// saved is a set of directories copied aside before the program
// directory is replaced.
type saved struct {
	root    *scope.Root
	plugins string
	libs    map[string]string
}

// saveAside copies the current plugins and libraries into the temp
// directory so a fresh main program can be dropped in.
func saveAside(req Request) (*saved, error) {
	s := &saved{root: req.Root, libs: map[string]string{}}
	base := filepath.Join(req.TempDir, savedDirName)
	if err := req.Root.Reset(base); err != nil {
		return nil, err
	}

	if !req.Root.IsEmpty(req.PluginsDir) {
		s.plugins = filepath.Join(base, "plugins")
		if err := req.Root.CopyTree(req.PluginsDir, s.plugins, "__pycache__"); err != nil {
			return nil, fmt.Errorf("failed to save plugins: %w", err)
		}
	}
	for _, lib := range req.Libraries {
		dir := req.LibraryDir(lib)
		if req.Root.IsEmpty(dir) {
			continue
		}
		dst := filepath.Join(base, lib)
		if err := req.Root.CopyTree(dir, dst, "__pycache__"); err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", lib, err)
		}
		s.libs[lib] = dst
	}
	logging.Debug("Saved plugins and libraries aside", "dir", base)
	return s, nil
}

// restore puts every saved plugin and library back. Plugins are
// restored one by one so plugins shipped with the new program survive.
// All failures are reported together.
func (s *saved) restore(req Request) error {
	var result *multierror.Error
	if s.plugins != "" {
		entries, err := os.ReadDir(s.plugins)
		if err != nil {
			result = multierror.Append(result, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			target := req.PluginDir(e.Name())
			if err := s.root.Remove(target); err != nil {
				result = multierror.Append(result, err)
				continue
			}
			if err := s.root.CopyTree(filepath.Join(s.plugins, e.Name()), target); err != nil {
				result = multierror.Append(result, fmt.Errorf("failed to restore plugin %s: %w", e.Name(), err))
			}
		}
	}
	for lib, src := range s.libs {
		target := req.LibraryDir(lib)
		if err := s.root.Remove(target); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if err := s.root.CopyTree(src, target); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to restore %s: %w", lib, err))
		}
	}
	if err := s.root.Remove(filepath.Join(req.TempDir, savedDirName)); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// replaceProgram swaps the program directory for src, keeping plugins
// and libraries.
func replaceProgram(req Request, src string) error {
	s, err := saveAside(req)
	if err != nil {
		return err
	}
	if err := req.Root.Remove(req.ProgramDir); err != nil {
		return err
	}
	copyErr := req.Root.CopyTree(src, req.ProgramDir)
	if err := s.restore(req); err != nil {
		if copyErr != nil {
			return multierror.Append(copyErr, err)
		}
		return err
	}
	return copyErr
}
