// pkg/state/state.go - small files remembering choices between runs.

package state

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	pythonPathFile = "python_path"
	pluginsFile    = "plugins"
	selectionsFile = "selections.yaml"
)

// Selections is the last confirmed choice of the front end.
type Selections struct {
	InstallRootDirectory string            `yaml:"InstallRootDirectory,omitempty"`
	PythonPath           string            `yaml:"PythonPath,omitempty"`
	Plugins              map[string]string `yaml:"Plugins,omitempty"`
}

// Store reads and writes state files in one directory.
type Store struct {
	Dir string
}

// New returns a Store in dir. An empty dir means the user config directory.
func New(dir string) (*Store, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate state directory: %w", err)
		}
		dir = filepath.Join(base, "sharktools_install")
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) path(name string) string { return filepath.Join(s.Dir, name) }

func (s *Store) write(name string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(s.path(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", name, err)
	}
	return nil
}

// SavePythonPath remembers the interpreter last used.
func (s *Store) SavePythonPath(path string) error {
	return s.write(pythonPathFile, []byte(path))
}

// LoadPythonPath returns the remembered interpreter if the file still exists.
func (s *Store) LoadPythonPath() (string, bool) {
	data, err := os.ReadFile(s.path(pythonPathFile))
	if err != nil {
		return "", false
	}
	line := strings.TrimSpace(strings.SplitN(string(data), "\n", 2)[0])
	if line == "" {
		return "", false
	}
	if _, err := os.Stat(line); err != nil {
		return "", false
	}
	return line, true
}

// SavePlugins caches the plugin catalog, one name per line.
func (s *Store) SavePlugins(plugins []string) error {
	return s.write(pluginsFile, []byte(strings.Join(plugins, "\n")))
}

// LoadPlugins returns the cached catalog, sorted.
func (s *Store) LoadPlugins() ([]string, error) {
	f, err := os.Open(s.path(pluginsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var plugins []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			plugins = append(plugins, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.Strings(plugins)
	return plugins, nil
}

// SaveSelections stores the front end selections.
func (s *Store) SaveSelections(sel Selections) error {
	data, err := yaml.Marshal(sel)
	if err != nil {
		return fmt.Errorf("failed to serialize selections: %w", err)
	}
	return s.write(selectionsFile, data)
}

// LoadSelections returns the stored selections or an empty value.
func (s *Store) LoadSelections() (Selections, error) {
	var sel Selections
	data, err := os.ReadFile(s.path(selectionsFile))
	if os.IsNotExist(err) {
		return sel, nil
	}
	if err != nil {
		return sel, err
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return sel, fmt.Errorf("failed to parse %s: %w", selectionsFile, err)
	}
	return sel, nil
}
