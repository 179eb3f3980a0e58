// pkg/manifest/manifest.go - collection of requirements.txt files from an install tree.

package manifest

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
	"github.com/sharksmhi/sharktools-install/pkg/wheel"
)

// DefaultFileName is the manifest file looked for in every subproject.
const DefaultFileName = "requirements.txt"

// DirectiveKind is an instruction carried in a comment line.
type DirectiveKind string

const (
	// DirectiveWheel requires the package to come from a local wheel.
	DirectiveWheel DirectiveKind = "wheel"
	// DirectiveReinstall forces a reinstall after all other entries.
	DirectiveReinstall DirectiveKind = "reinstall"
)

// Directive is a "#wheel <name>" or "#reinstall <name>" line.
type Directive struct {
	Kind   DirectiveKind
	Name   string
	Source string
}

// Requirement is one reconcilable line of a manifest.
type Requirement struct {
	Name   string // distribution name as written
	Spec   string // version constraint, markers and extras following the name
	Line   string // the line as it will be passed to pip
	Source string // manifest the line came from
	Wheel  string // set when the line references a wheel file
}

// Key is the normalized grouping name.
func (r Requirement) Key() string { return wheel.NormalizeName(r.Name) }

// IsWheel reports whether the line references a wheel file.
func (r Requirement) IsWheel() bool { return r.Wheel != "" }

// Manifest is everything collected from one tree.
type Manifest struct {
	Requirements []Requirement
	Directives   []Directive
	Subprojects  []string // base names of directories that are local code
	Files        []string // manifests read, in walk order
}

var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)

var skipDirs = map[string]bool{
	".git":        true,
	".idea":       true,
	"__pycache__": true,
	"venv":        true,
}

// Collect walks root in lexical order and parses every file called
// fileName. Directories that ship a manifest, and the immediate children
// of any "plugins" directory, are reported as subprojects. A missing root
// is logged and yields an empty manifest.
func Collect(root, fileName string) (*Manifest, error) {
	if fileName == "" {
		fileName = DefaultFileName
	}
	m := &Manifest{}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		logging.Warn("Manifest root does not exist", "root", root)
		return m, nil
	}

	subprojects := map[string]bool{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if filepath.Base(filepath.Dir(path)) == "plugins" && path != root {
				subprojects[d.Name()] = true
			}
			return nil
		}
		if d.Name() != fileName {
			return nil
		}

		dir := filepath.Dir(path)
		subprojects[filepath.Base(dir)] = true

		parsed, err := ParseFile(path)
		if err != nil {
			return err
		}
		m.Files = append(m.Files, path)
		m.Requirements = append(m.Requirements, parsed.Requirements...)
		m.Directives = append(m.Directives, parsed.Directives...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect manifests under %s: %w", root, err)
	}

	for name := range subprojects {
		m.Subprojects = append(m.Subprojects, name)
	}
	sort.Strings(m.Subprojects)

	logging.Info("Collected manifests", "root", root, "files", len(m.Files),
		"requirements", len(m.Requirements), "directives", len(m.Directives))
	return m, nil
}

// ParseFile parses one manifest file.
func ParseFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ParseLines(lines, path), nil
}

// ParseLines parses manifest lines held in memory, e.g. configured requirements.
func ParseLines(lines []string, source string) *Manifest {
	m := &Manifest{}
	for _, raw := range lines {
		line := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if d, ok := parseDirective(line, source); ok {
				m.Directives = append(m.Directives, d)
			}
			continue
		}
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}

		if strings.HasPrefix(line, "-") {
			logging.Warn("Skipping option line in manifest", "line", line, "source", source)
			continue
		}

		if strings.HasSuffix(strings.ToLower(line), ".whl") {
			fields := strings.Fields(line)
			ref := fields[len(fields)-1]
			a, err := wheel.ParseFilename(ref)
			if err != nil {
				logging.Warn("Skipping unparseable wheel reference", "line", line, "source", source, "error", err)
				continue
			}
			m.Requirements = append(m.Requirements, Requirement{
				Name:   a.Name,
				Line:   ref,
				Source: source,
				Wheel:  a.Filename,
			})
			continue
		}

		name := nameRe.FindString(line)
		if name == "" {
			logging.Warn("Skipping unrecognised manifest line", "line", line, "source", source)
			continue
		}
		m.Requirements = append(m.Requirements, Requirement{
			Name:   name,
			Spec:   strings.TrimSpace(line[len(name):]),
			Line:   line,
			Source: source,
		})
	}
	return m
}

func parseDirective(line, source string) (Directive, bool) {
	fields := strings.Fields(strings.TrimPrefix(line, "#"))
	if len(fields) != 2 {
		return Directive{}, false
	}
	switch kind := DirectiveKind(strings.ToLower(fields[0])); kind {
	case DirectiveWheel, DirectiveReinstall:
		return Directive{Kind: kind, Name: fields[1], Source: source}, true
	}
	return Directive{}, false
}

// WriteFile writes the consolidated install list, one entry per line.
func WriteFile(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
