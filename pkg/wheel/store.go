// pkg/wheel/store.go - local artifact store lookup and staging.

package wheel

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
	"github.com/sharksmhi/sharktools-install/pkg/utils"
)

// Resolver finds a compatible wheel for a package.
type Resolver interface {
	Resolve(name string, t Target) (Artifact, error)
}

// Store is a directory of pre-built wheels shipped with the installer.
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// List returns the parseable wheels of the store in lexical order. A
// missing store yields an empty list.
func (s *Store) List() ([]Artifact, error) {
	if s == nil || s.Dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		logging.Warn("Wheel store does not exist", "dir", s.Dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read wheel store %s: %w", s.Dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".whl") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	artifacts := make([]Artifact, 0, len(names))
	for _, n := range names {
		a, err := ParseFilename(filepath.Join(s.Dir, n))
		if err != nil {
			logging.Warn("Skipping wheel with unexpected filename", "file", n, "error", err)
			continue
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

// Resolve returns the first compatible wheel whose filename contains name.
// A wheel whose distribution name equals name wins over substring matches.
func (s *Store) Resolve(name string, t Target) (Artifact, error) {
	artifacts, err := s.List()
	if err != nil {
		return Artifact{}, err
	}
	want := NormalizeName(name)
	needle := strings.ToLower(name)

	var fallback *Artifact
	for i := range artifacts {
		a := artifacts[i]
		if !a.CompatibleWith(t) {
			continue
		}
		if NormalizeName(a.Name) == want {
			logging.Debug("Resolved wheel", "package", name, "file", a.Filename, "target", t.String())
			return a, nil
		}
		if fallback == nil && strings.Contains(strings.ToLower(a.Filename), needle) {
			fallback = &artifacts[i]
		}
	}
	if fallback != nil {
		logging.Debug("Resolved wheel by substring", "package", name, "file", fallback.Filename, "target", t.String())
		return *fallback, nil
	}
	return Artifact{}, fmt.Errorf("%w: %s for %s", ErrNoArtifactFound, name, t)
}

// Lookup finds a wheel by exact filename.
func (s *Store) Lookup(filename string) (Artifact, error) {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	artifacts, err := s.List()
	if err != nil {
		return Artifact{}, err
	}
	for _, a := range artifacts {
		if a.Filename == base {
			return a, nil
		}
	}
	return Artifact{}, fmt.Errorf("%w: %s", ErrNoArtifactFound, base)
}

// Stage copies the wheel into dir unless a file of the same name is
// already there, and returns the staged path.
func Stage(a Artifact, dir string) (string, error) {
	dst := filepath.Join(dir, a.Filename)
	if _, err := os.Stat(dst); err == nil {
		logging.Debug("Wheel already staged", "file", dst)
		return dst, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory %s: %w", dir, err)
	}

	in, err := os.Open(a.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open wheel %s: %w", a.Path, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to stage wheel %s: %w", a.Filename, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	if sum, err := utils.FileSHA256(dst); err == nil {
		logging.Info("Staged wheel", "file", a.Filename, "sha256", sum)
	}
	return dst, nil
}
