// pkg/scope/scope.go - scoped installation root for destructive file operations.
//
// Every delete, reset or recursive copy performed by the installer goes
// through a Root. A Root can only be built for a path that carries the
// project marker, and it refuses to touch anything outside its prefix.

package scope

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/sharksmhi/sharktools-install/pkg/logging"
)

// DefaultMarker is the name every install tree path must contain.
const DefaultMarker = "SHARKtools"

// ErrUnsafePath is returned for operations on paths outside the root or
// roots without the project marker.
var ErrUnsafePath = errors.New("unsafe path")

// Root is the capability to modify files below one directory.
type Root struct {
	fs   afero.Fs
	path string
}

// New returns a Root on the OS filesystem.
func New(path, marker string) (*Root, error) {
	return NewWithFs(afero.NewOsFs(), path, marker)
}

// NewWithFs returns a Root backed by fs.
func NewWithFs(fs afero.Fs, path, marker string) (*Root, error) {
	if marker == "" {
		marker = DefaultMarker
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty root", ErrUnsafePath)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsafePath, path, err)
	}
	if !strings.Contains(abs, marker) {
		return nil, fmt.Errorf("%w: %s does not contain %q", ErrUnsafePath, abs, marker)
	}
	return &Root{fs: fs, path: filepath.Clean(abs)}, nil
}

// Path returns the absolute root directory.
func (r *Root) Path() string { return r.path }

// Fs returns the filesystem the root operates on.
func (r *Root) Fs() afero.Fs { return r.fs }

// Contains reports whether path is the root or below it.
func (r *Root) Contains(path string) bool {
	_, ok := r.rel(path)
	return ok
}

func (r *Root) rel(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(r.path, abs)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// check validates that path lies strictly below the root.
func (r *Root) check(op, path string) error {
	rel, ok := r.rel(path)
	if !ok || rel == "." {
		logging.Warn("Refusing operation outside install root", "op", op, "path", path, "root", r.path)
		return fmt.Errorf("%w: %s %s outside %s", ErrUnsafePath, op, path, r.path)
	}
	return nil
}

// Remove deletes a file or directory tree below the root. A missing path is not an error.
func (r *Root) Remove(path string) error {
	if err := r.check("remove", path); err != nil {
		return err
	}
	if _, err := r.fs.Stat(path); os.IsNotExist(err) {
		return nil
	}
	logging.Debug("Removing", "path", path)
	if err := r.fs.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Reset removes a directory below the root and creates it again empty.
func (r *Root) Reset(dir string) error {
	if err := r.Remove(dir); err != nil {
		return err
	}
	return r.MkdirAll(dir)
}

// MkdirAll creates dir and its parents. The root itself is allowed.
func (r *Root) MkdirAll(dir string) error {
	if _, ok := r.rel(dir); !ok {
		return fmt.Errorf("%w: mkdir %s outside %s", ErrUnsafePath, dir, r.path)
	}
	if err := r.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Rename moves src to dst. Both must be below the root.
func (r *Root) Rename(src, dst string) error {
	if err := r.check("rename", src); err != nil {
		return err
	}
	if err := r.check("rename", dst); err != nil {
		return err
	}
	if err := r.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return r.fs.Rename(src, dst)
}

// CopyFile copies one file to dst below the root, replacing dst.
func (r *Root) CopyFile(src, dst string) error {
	if err := r.check("copy", dst); err != nil {
		return err
	}
	return copyFile(r.fs, src, dst)
}

// CopyTree copies the directory src recursively into dst below the root.
// Directory names listed in skip are left out at any depth.
func (r *Root) CopyTree(src, dst string, skip ...string) error {
	if err := r.check("copy", dst); err != nil {
		return err
	}
	skipSet := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipSet[s] = true
	}
	return afero.Walk(r.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			if rel != "." && skipSet[info.Name()] {
				return filepath.SkipDir
			}
			return r.fs.MkdirAll(target, 0755)
		}
		return copyFile(r.fs, path, target)
	})
}

// IsEmpty reports whether dir is missing, an empty directory or an empty file.
func (r *Root) IsEmpty(dir string) bool {
	exists, err := afero.Exists(r.fs, dir)
	if err != nil || !exists {
		return true
	}
	empty, err := afero.IsEmpty(r.fs, dir)
	return err == nil && empty
}

func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
