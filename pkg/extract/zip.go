// pkg/extract/zip.go - extraction of downloaded zipballs.

package extract

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
)

// Unzip extracts archive into dest and returns the names of the top-level
// entries it created, sorted. Entries escaping dest are rejected.
func Unzip(archive, dest string) ([]string, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", archive, err)
	}
	defer r.Close()

	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destAbs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", destAbs, err)
	}

	top := map[string]bool{}
	for _, f := range r.File {
		name := filepath.FromSlash(f.Name)
		target := filepath.Join(destAbs, name)
		if target != destAbs && !strings.HasPrefix(target, destAbs+string(filepath.Separator)) {
			return nil, fmt.Errorf("archive entry %q escapes %s", f.Name, dest)
		}
		if first := strings.SplitN(filepath.ToSlash(name), "/", 2)[0]; first != "" {
			top[first] = true
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return nil, err
			}
			continue
		}
		if err := writeEntry(f, target); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(top))
	for n := range top {
		names = append(names, n)
	}
	sort.Strings(names)
	logging.Debug("Extracted archive", "archive", archive, "dest", dest, "entries", len(r.File))
	return names, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// FindDir returns the first directory in dir, in lexical order, whose
// name contains "-<name>-". GitHub zipballs unpack to
// "<owner>-<name>-<sha>".
func FindDir(dir, name string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	marker := "-" + name + "-"
	for _, e := range entries {
		if e.IsDir() && strings.Contains(e.Name(), marker) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("no extracted directory for %s in %s", name, dir)
}
